package rmux

import "fmt"

// Macro is an extension method registered on the application
// and invoked through a context.
type Macro func(Context, ...interface{}) error

// RegisterMacro registers an extension method under the given name.
// The macro set is snapshotted into each context at construction,
// so registrations never affect requests that are already in flight.
func (app *Application) RegisterMacro(name string, macro Macro) {
	app.macrosMutex.Lock()
	defer app.macrosMutex.Unlock()

	current, _ := app.macros.Load().(map[string]Macro)
	snapshot := make(map[string]Macro, len(current)+1)

	for key, value := range current {
		snapshot[key] = value
	}

	snapshot[name] = macro
	app.macros.Store(snapshot)
}

// Macro invokes the named extension method with the given arguments.
func (ctx *context) Macro(name string, args ...interface{}) error {
	macro, exists := ctx.macros[name]

	if !exists {
		return fmt.Errorf("%w: %s", ErrMacroNotFound, name)
	}

	return macro(ctx, args...)
}
