// Package ui implements the chat terminal interface using bubbletea's Elm architecture.
//
// The TUI is a three-view workflow:
//  1. [ChatView] : converse with the assistant about the playlist
//  2. [CreateView] : watch creation progress once a request is confirmed
//  3. [ResultView] : final playlist summary with the share link
//
// The [Model] follows the standard Init/Update/View pattern. Chat turns run as
// tea commands so the input stays responsive, and creation progress flows
// through a channel that is drained one update per command.
//
// Keyboard bindings: enter sends, ctrl+n starts a fresh conversation after a
// result, ctrl+c/esc quits. Contextual help renders via charmbracelet/bubbles/help.
package ui
