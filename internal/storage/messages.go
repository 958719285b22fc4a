// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// messages.go - Conversation replay for continued chats.

package storage

import "github.com/jeranaias/promptrun/internal/model"

// BuildMessages replays history in creation order and appends the new
// turn. Each entry contributes its system message when it has one, then
// its user prompt and the assistant response. The new system and prompt
// come last, so the API sees the thread exactly as it grew.
func BuildMessages(history []Entry, system, prompt string) []model.Message {
	messages := make([]model.Message, 0, len(history)*3+2)
	for _, e := range history {
		if e.System != "" {
			messages = append(messages, model.NewSystemMessage(e.System))
		}
		messages = append(messages, model.NewUserMessage(e.Prompt))
		messages = append(messages, model.NewAssistantMessage(e.Response))
	}
	if system != "" {
		messages = append(messages, model.NewSystemMessage(system))
	}
	messages = append(messages, model.NewUserMessage(prompt))
	return messages
}

// HistoryModel returns the model the conversation was started with: the
// model of its most recent entry, or "" for an empty history.
func HistoryModel(history []Entry) string {
	if len(history) == 0 {
		return ""
	}
	return history[len(history)-1].Model
}
