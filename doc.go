// Package docgen renders HTML layout templates to HTML or PDF documents
// using a shared headless Chrome.
//
// # Quick Start
//
// Create a browser manager and a renderer, render, and shut down when done:
//
//	manager := browser.NewManager(browser.NewRodLauncher())
//	defer manager.Shutdown()
//
//	r := docgen.NewRenderer(manager)
//	defer r.Close()
//
//	art, err := r.Render(ctx, docgen.RenderRequest{
//	    Layout: "<h1>Invoice {{number}}</h1>",
//	    Data:   map[string]any{"number": 42},
//	    Format: docgen.FormatPDF,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.WriteFile("invoice.pdf", art.Body, 0o644)
//
// # Rendering Pipeline
//
// Each render goes through these stages:
//
//  1. Validation: layout present, format supported, PDF options resolvable
//  2. Dependency checks, in the background and never fatal
//  3. Handlebars rendering with formatDate, ifEquals and markdown helpers
//  4. Document assembly: head metadata, <style>, <link> and <script> tags
//  5. A browser session: load, post-load stylesheet, screen media,
//     total-pages substitution, then HTML serialization or PDF printing
//
// The browser tab used by a session is closed on every path.
//
// # Errors
//
// Failures are *Error values carrying an ErrorKind. Use KindOf or
// errors.Is with the per-kind sentinels:
//
//	if errors.Is(err, docgen.ErrRenderTimeout) { ... }
//	status := docgen.KindOf(err).HTTPStatus()
//
// # Concurrency
//
// Renderer is safe for concurrent use. Sessions share one browser process,
// each in its own tab; WithMaxSessions bounds how many run at once.
package docgen
