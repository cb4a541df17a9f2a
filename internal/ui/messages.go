package ui

import (
	"github.com/mixtape-labs/mixtape/internal/models"
	"github.com/mixtape-labs/mixtape/internal/tasks"
)

// chatRepliedMsg carries the classifier's response to one sent message.
type chatRepliedMsg struct {
	result *tasks.ChatResult
	err    error
}

// progressUpdateMsg forwards one creation progress update into the Elm loop.
type progressUpdateMsg tasks.ProgressUpdate

// createDoneMsg carries the final outcome of a playlist creation.
type createDoneMsg struct {
	playlist *models.CreatedPlaylist
	err      error
}
