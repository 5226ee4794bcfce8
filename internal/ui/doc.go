// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI provides a multi-view pairing workflow:
//  1. [EntryView] : Enter the connection code and site name
//  2. [ConnectingView] : Spinner while the pairing exchange runs
//  3. [ConnectedView] : Session summary for the paired backend
//  4. [ErrorView] : Failure message with retry
//
// The (view) [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Session transitions flow through a channel fed by the state machine's
// subscription, so the TUI always renders the machine's view of the world
// rather than its own.
//
// Keyboard navigation uses tab/enter/esc with contextual help displayed via charmbracelet/bubbles/help.
package ui
