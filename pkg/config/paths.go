// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package config resolves workspace paths and runtime settings.
package config

import (
	"os"
	"path/filepath"
	"strings"
)

// GetWorkspaceRoot returns the Oxbow workspace root.
//
// Priority:
// 1. OXBOW_WORKSPACE environment variable (if set and non-empty)
// 2. ~/.oxbow (default)
//
// The returned path is always absolute. Tilde (~) in OXBOW_WORKSPACE is
// expanded to the user's home directory; relative paths are converted to
// absolute paths.
//
// Note: this reads directly from os.Getenv(), not from viper, so it can be
// used during bootstrap before any config file is loaded.
func GetWorkspaceRoot() string {
	if root := os.Getenv("OXBOW_WORKSPACE"); root != "" {
		return expandPath(root)
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home dir cannot be determined
		return ".oxbow"
	}
	return filepath.Join(homeDir, ".oxbow")
}

// ConversationDir returns the per-conversation data directory under the
// workspace root. The conversation's database file and its JSON sidecars all
// live in this directory.
func ConversationDir(workspaceRoot, conversationID string) string {
	return filepath.Join(workspaceRoot, "conversations", conversationID)
}

// ConversationDBPath returns the path of the embedded database file for a
// conversation. The path is deterministic for a (workspace, conversation)
// pair so instances reopen the same file across process restarts.
func ConversationDBPath(workspaceRoot, conversationID string) string {
	return filepath.Join(ConversationDir(workspaceRoot, conversationID), "conversation.duckdb")
}

// ViewRegistryPath returns the path of the view-registry sidecar for a
// conversation.
func ViewRegistryPath(workspaceRoot, conversationID string) string {
	return filepath.Join(ConversationDir(workspaceRoot, conversationID), "views.json")
}

// BusinessContextPath returns the path of the business-context sidecar for a
// conversation.
func BusinessContextPath(workspaceRoot, conversationID string) string {
	return filepath.Join(ConversationDir(workspaceRoot, conversationID), "business_context.json")
}

// DatasourceDBPath returns the path of the datasource registry database under
// the workspace root.
func DatasourceDBPath(workspaceRoot string) string {
	return filepath.Join(workspaceRoot, "datasources.db")
}

// expandPath expands ~ to the user's home directory and makes relative paths
// absolute.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~") {
		homeDir, err := os.UserHomeDir()
		if err == nil {
			if path == "~" {
				return homeDir
			}
			if strings.HasPrefix(path, "~/") {
				return filepath.Join(homeDir, path[2:])
			}
		}
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}
