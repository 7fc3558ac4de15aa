// Package tui provides the live terminal monitor for trimwatch.
//
// The App owns a render.Monitor drawing into an in-memory Board. Status
// updates reach it as messages, so every render runs on the bubbletea event
// loop:
//
//	program, app := tui.NewProgram(actions, opts)
//	sup := monitor.New(client, tui.NewProgramSink(program), monitor.Options{})
//	go program.Run()
//
// Keys: s starts or stops the auto-adjust run, r downloads a batch report,
// m reconnects the status stream, q quits.
package tui
