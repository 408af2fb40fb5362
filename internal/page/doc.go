// Package page renders the workspace document: the Shell, which declares the
// document metadata and wraps its children, and the Landing view placed inside
// it. Templates are embedded in the binary and parsed once.
package page
