// Package dspxml converts spreadsheets into the XML upload format of the DSP.
//
// A conversion is described by two documents: the project's data model
// (JSON), which declares resource classes, their typed properties and the
// lists of controlled vocabularies, and a parse-info file (HCL), which maps
// each sheet of one or more xlsx workbooks to a resource class. A conversion
// runs in stages:
//
// Loading: The parse-info is decoded into typed sheet descriptions and checked
// against the data model (packages parseinfo and datamodel). Workbooks and
// the data model are read through an Opener, so they may live on disk,
// behind an http(s) URL or in S3.
//
// Transformation: Every sheet becomes a column table. The sheet's transformations form a
// plan of operators, each appending new columns computed from existing
// ones (package transform). Operators which only need their own sheet run
// first, concurrently per sheet; identify and update_with_server may then
// read the tables of other sheets or an IRI store (package iristore).
//
// Classification and validation: The columns of each table are classified into resource attributes,
// bitstream, properties and their side-channels (package header), and
// each row is validated against the value types and cardinalities of the
// data model (package validate).
//
// Emission: One XML document is written per resource class (package xmlout).
//
// This package holds what every stage shares: the error kinds, the Logger
// and the Opener.
package dspxml
