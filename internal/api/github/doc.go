// Package github reads the release list of a GitHub repository and streams
// release assets.
//
// The release list is validated against an embedded JSON Schema before it is
// decoded, so a feed that changed shape fails loudly instead of yielding empty
// releases.
package github
