// Package assets provides the supplementary stylesheet injected into rendered
// documents after they load.
//
// # Loader Architecture
//
//	StyleLoader (interface)
//	    │
//	    ├── EmbeddedLoader    - built-in styles compiled into the binary
//	    ├── FilesystemLoader  - {basePath}/styles/{name}.css on disk
//	    └── Resolver          - custom-first, falling back to embedded
//
// Stylesheet combines a named or path-addressed style with the CSS that
// colours code blocks produced by the template markdown helper.
//
// # Security
//
// Style names are validated to prevent path traversal. FilesystemLoader
// resolves symlinks and verifies paths stay within basePath.
package assets
