// Package pipeline turns a layout template and its data into a complete HTML
// document ready for the browser:
//   - handlebars rendering with date, equality and markdown helpers
//   - relative asset URL resolution against a base URL
//   - document assembly: doctype, head metadata, stylesheet, dependency tags
//
// Browser work (loading, pagination, PDF printing) lives in the session package.
package pipeline
