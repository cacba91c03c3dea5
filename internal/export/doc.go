// Package export writes capture analysis artifacts to an XLSX workbook.
//
// The workbook carries one sheet per artifact kind: a capture summary sheet,
// the chapter outline, and the decision points with their chapter titles.
package export
