// Package isolation detects and strips marked advertisement content from
// text before it reaches a downstream model.
//
// Ad spans are demarcated by one of three tag dialects, which may be mixed
// within a single document: XML-like pairs (<sponsored>...</sponsored>),
// BBCode pairs ([ad]...[/ad]), and HTML comment sentinels
// (<!--ad-->...<!--/ad-->). Each removed span is replaced by a single
// placeholder marker; all other text is preserved byte for byte.
//
// The engine fails open: unterminated or malformed markers are treated as
// plain text, never as a reason to drop the remainder of the document.
package isolation
