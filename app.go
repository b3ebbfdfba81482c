package gekko

import (
	"fmt"
	"reflect"
	"runtime"
)

type App struct {
	modules   []Module
	stages    []Stage
	systems   map[string][]scheduledSystem
	resources map[reflect.Type]any
	ecs       *Ecs

	frame     uint64
	maxFrames uint64
	exiting   bool

	// command buffer, applied in order between stages
	pending []pendingOp
}

type opKind int

const (
	opAddEntity opKind = iota
	opRemoveEntity
	opAddComponents
	opRemoveComponents
)

type pendingOp struct {
	kind       opKind
	eid        EntityId
	components []any
}

func NewApp() *App {
	ecs := MakeEcs()
	app := &App{
		stages:    defaultStages(),
		systems:   make(map[string][]scheduledSystem),
		resources: make(map[reflect.Type]any),
		ecs:       &ecs,
	}
	for _, stage := range app.stages {
		app.systems[stage.Name] = make([]scheduledSystem, 0)
	}
	return app
}

func (app *App) Commands() *Commands {
	return &Commands{app: app}
}

// UseModules installs modules right away.
func (app *App) UseModules(modules ...Module) *App {
	cmd := app.Commands()
	for _, module := range modules {
		module.Install(app, cmd)
		app.modules = append(app.modules, module)
	}
	app.FlushCommands()
	return app
}

// Frame is the number of frames run so far.
func (app *App) Frame() uint64 { return app.frame }

// Run executes frames until a system calls Commands.Exit or the frame
// limit set with AppBuilder.MaxFrames is hit.
func (app *App) Run() {
	app.Logger().Infof("Running %d stages, %d modules", len(app.stages), len(app.modules))
	for !app.exiting {
		app.Step()
		if app.maxFrames > 0 && app.frame >= app.maxFrames {
			break
		}
	}
	app.Logger().Infof("Stopped after %d frames", app.frame)
}

// RunFrames executes exactly n frames unless a system exits first.
func (app *App) RunFrames(n int) {
	for i := 0; i < n && !app.exiting; i++ {
		app.Step()
	}
}

// Step runs every stage once.
func (app *App) Step() {
	first := app.frame == 0
	for _, stage := range app.stages {
		for _, system := range app.systems[stage.Name] {
			if system.once && !first {
				continue
			}
			app.callSystem(system.fn)
		}
		app.FlushCommands()
	}
	app.frame++
}

func (app *App) Exiting() bool { return app.exiting }

func (app *App) addResources(resources ...any) *App {
	for _, resource := range resources {
		resourceType := reflect.TypeOf(resource)
		if resourceType.Kind() != reflect.Pointer {
			panic(fmt.Sprintf("resource %s must be a pointer", resourceType))
		}
		if _, ok := app.resources[resourceType.Elem()]; ok {
			panic(fmt.Sprintf("%s is already in resources", resourceType))
		}
		app.resources[resourceType.Elem()] = resource
	}
	return app
}

func (app *App) hasResource(t reflect.Type) bool {
	_, ok := app.resources[t]
	return ok
}

// Resource returns the resource of type T, or nil when it is not installed.
func Resource[T any](app *App) *T {
	if res, ok := app.resources[reflect.TypeFor[T]()]; ok {
		return res.(*T)
	}
	return nil
}

var typeOfCommands = reflect.TypeOf(Commands{})

func (app *App) callSystem(system systemFn) {
	systemType := reflect.TypeOf(system)
	systemValue := reflect.ValueOf(system)

	args := make([]reflect.Value, systemType.NumIn())

	for i := 0; i < systemType.NumIn(); i++ {
		argType := systemType.In(i)
		if argType.Kind() != reflect.Pointer {
			app.unresolved(systemValue, systemType, argType)
		}
		underlyingType := argType.Elem()

		if underlyingType == typeOfCommands {
			args[i] = reflect.ValueOf(&Commands{app: app})
		} else if resource, ok := app.resources[underlyingType]; ok {
			args[i] = reflect.ValueOf(resource)
		} else {
			app.unresolved(systemValue, systemType, argType)
		}
	}
	systemValue.Call(args)
}

func (app *App) unresolved(systemValue reflect.Value, systemType, argType reflect.Type) {
	msg := fmt.Sprintf("Unable to resolve System dependency.\nSystem: %s\nSystem type: %s\nDependency: %s",
		runtime.FuncForPC(systemValue.Pointer()).Name(),
		systemType,
		argType,
	)
	app.Logger().Errorf("%s", msg)
	panic(msg)
}

// FlushCommands applies buffered entity commands in the order they were issued.
func (app *App) FlushCommands() {
	if len(app.pending) == 0 {
		return
	}
	logger := app.Logger()
	for _, op := range app.pending {
		switch op.kind {
		case opAddEntity:
			app.ecs.insertEntity(op.eid, op.components...)
		case opRemoveEntity:
			if logger.DebugEnabled() {
				logger.Debugf("Removing entity %v", op.eid)
			}
			app.ecs.removeEntity(op.eid)
		case opAddComponents:
			app.ecs.addComponents(op.eid, op.components...)
		case opRemoveComponents:
			app.ecs.removeComponents(op.eid, op.components...)
		}
	}
	clear(app.pending)
	app.pending = app.pending[:0]
}
