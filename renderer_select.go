package gekko

// RendererName identifies a concrete renderer module.
// Keep names aligned with ensureSingleRenderer tags.
type RendererName string

const (
	RendererWGPU     RendererName = "wgpu"
	RendererHeadless RendererName = "headless"
)

// HeadlessModule keeps instance data in memory sinks and draws nothing.
// Used for benchmarks, CI and tests.
type HeadlessModule struct{}

func (HeadlessModule) Install(app *App, cmd *Commands) {
	ensureSingleRenderer(app, string(RendererHeadless))
}

// ensureWindowResource guarantees a single shared WindowState resource exists.
func ensureWindowResource(app *App, width, height int, title string) {
	if Resource[WindowState](app) != nil {
		return
	}
	app.UseModules(NewPlatformWindow(width, height, title))
	ws := Resource[WindowState](app)
	app.Logger().Infof("Created shared window (%dx%d) '%s'", ws.WindowWidth, ws.WindowHeight, ws.windowTitle)
}

// UseRenderer installs exactly one renderer module.
// Usage:
//
//	app.UseRenderer(RendererWGPU, ClientModule{})
func (app *App) UseRenderer(name RendererName, mod Module) *App {
	ensureSingleRenderer(app, string(name))
	app.Logger().Infof("Renderer selected: %s", name)
	app.UseModules(mod)
	return app
}

// UseWGPU selects the wgpu renderer with a window of the given size.
func (app *App) UseWGPU(width, height int, title string) *App {
	return app.UseRenderer(RendererWGPU, ClientModule{
		WindowWidth:  width,
		WindowHeight: height,
		WindowTitle:  title,
	})
}

// UseHeadless selects the in-memory renderer.
func (app *App) UseHeadless() *App {
	return app.UseRenderer(RendererHeadless, HeadlessModule{})
}
