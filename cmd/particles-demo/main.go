// Command particles-demo runs a particle scene in a window, or headless for
// a fixed number of frames.
package main

import (
	_ "embed"
	"flag"
	"log"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	gekko "github.com/gekko3d/gekko-particles"
	"github.com/gekko3d/gekko-particles/config"
	rtapp "github.com/gekko3d/gekko-particles/particlert/rt/app"
)

//go:embed scenes/showcase.yaml
var showcaseScene []byte

func main() {
	configPath := flag.String("config", "", "YAML config file merged over the built-in defaults")
	scenePath := flag.String("scene", "", "YAML scene file (default: built-in showcase)")
	headless := flag.Bool("headless", false, "simulate without a window using a fixed time step")
	frames := flag.Int("frames", 0, "stop after this many frames, 0 runs until the window closes")
	dumpConfig := flag.String("dump-config", "", "write the effective config to this path and exit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if *dumpConfig != "" {
		if err := cfg.WriteYAML(*dumpConfig); err != nil {
			log.Fatalf("config: %v", err)
		}
		return
	}

	scene, err := loadScene(*scenePath)
	if err != nil {
		log.Fatalf("scene: %v", err)
	}

	timeModule := gekko.TimeModule{}
	maxFrames := uint64(max(*frames, 0))
	if *headless {
		timeModule.Step = time.Duration(float64(time.Second) * float64(cfg.Derived.FrameStep))
		if maxFrames == 0 {
			maxFrames = 600
		}
	}

	app := gekko.NewAppBuilder().
		UseModule(gekko.LoggingModule{Prefix: cfg.Logging.Prefix, Debug: cfg.Logging.Debug}).
		UseModule(timeModule).
		UseModule(gekko.HierarchyModule{}).
		UseModule(gekko.LifecycleModule{}).
		UseModule(gekko.ParticlesModule{
			Config:         cfg.Sim(),
			ProfilerWindow: cfg.Profiler.Window,
		}).
		MaxFrames(maxFrames).
		Build()

	camera := gekko.NewCamera(
		mgl32.Vec3(cfg.Camera.Position),
		mgl32.Vec3(cfg.Camera.LookAt),
		cfg.Camera.Fov, cfg.Camera.Near, cfg.Camera.Far,
	)
	if *headless {
		app.UseHeadless()
	} else {
		app.UseRenderer(gekko.RendererWGPU, gekko.ClientModule{
			WindowWidth:    cfg.Window.Width,
			WindowHeight:   cfg.Window.Height,
			WindowTitle:    cfg.Window.Title,
			ClearColor:     cfg.Render.ClearColor,
			Stretch:        cfg.Render.Stretch,
			BufferHeadroom: cfg.Render.BufferHeadroom,
			Camera:         camera,
		})
		app.UseModules(
			gekko.InputModule{},
			gekko.FlyingCameraModule{},
			gekko.ParticleControlsModule{},
		)
	}

	cmd := app.Commands()
	assets := gekko.Resource[gekko.AssetServer](app)
	named, err := gekko.LoadScene(cmd, assets, scene, gekko.SceneDefaults{
		RenderMode:    cfg.Derived.RenderMode,
		Space:         cfg.Derived.Space,
		Use3DSize:     cfg.Render.Use3DSize,
		Use3DRotation: cfg.Render.Use3DRotation,
		Texture:       cfg.Render.Texture,
	})
	if err != nil {
		log.Fatalf("scene: %v", err)
	}
	cmd.AddEntity(&camera, &gekko.FlyingCameraComponent{})
	app.FlushCommands()
	app.Logger().Infof("Loaded %d named entities", len(named))

	if every := uint64(cfg.Profiler.ReportEvery); every > 0 {
		logger := app.Logger()
		app.UseSystem(
			gekko.System(func(t *gekko.Time, prof *rtapp.Profiler) {
				if t.FrameCount%every == 0 {
					logger.Infof("frame %d\n%s", t.FrameCount, prof.StatsString())
				}
			}).
				InStage(gekko.Finale).
				RunAlways(),
		)
	}

	app.Run()
}

func loadScene(path string) (*gekko.SceneDef, error) {
	if path == "" {
		return gekko.ParseScene(showcaseScene)
	}
	return gekko.LoadSceneFile(path)
}
