// Package events holds the application wide signals that background
// workers use to wake up the presentation layer. Workers emit, the TUI
// waits from inside its own update loop, so view state is only ever
// touched on the UI loop.
package events

import (
	"github.com/ksdme/cursorkeep/internal/bus"
)

// Emitted when the contents of a watched backup folder change. The
// topic is the folder path, the message is the path that triggered it.
var BackupFolderChangedSignal = bus.New[string, string]()

// Emitted when a background refresh pass over a set of accounts
// finishes. The message is how many accounts were refreshed.
var AccountsRefreshedSignal = bus.New[string, int]()

// The topic background refresh passes report on.
const AccountsTopic = "accounts"
