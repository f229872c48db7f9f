// Package todo is a small todo-list application built on the state
// container. It shows a derived field, a listener that removes itself, an
// application event and components rendered through the binding hooks.
// The CLI drives it in the demo and inspect commands.
package todo
