// Package textutil provides text helpers for filename sanitization,
// tokenization, and word-overlap comparison of extracted slide content.
package textutil
