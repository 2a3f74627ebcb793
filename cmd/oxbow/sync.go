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
package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/oxbow-labs/oxbow/internal/log"
	"github.com/oxbow-labs/oxbow/pkg/duck"
	"github.com/oxbow-labs/oxbow/pkg/enrich"
)

var (
	syncConversation string
	syncDatasources  []string
	syncDetach       bool
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Reconcile a conversation's attached datasources",
	Long: `Sync attaches every checked datasource to the conversation's database and,
with --detach, removes datasources that fell out of the checked set. The
operation is idempotent: re-running with the same set is a no-op.`,
	RunE: runSync,
}

func init() {
	syncCmd.Flags().StringVarP(&syncConversation, "conversation", "c", "", "Conversation id")
	syncCmd.Flags().StringSliceVarP(&syncDatasources, "datasources", "d", nil, "Checked datasource ids (comma-separated or repeated)")
	syncCmd.Flags().BoolVar(&syncDetach, "detach", true, "Detach datasources no longer checked")
	_ = syncCmd.MarkFlagRequired("conversation")
}

func runSync(cmd *cobra.Command, args []string) error {
	store, err := openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	manager := newManager()
	defer manager.CloseAll()

	results, err := manager.SyncDatasources(cmd.Context(), syncConversation, workspace, syncDatasources, store, syncDetach)
	if err != nil {
		return err
	}
	if len(results) == 0 {
		fmt.Println("Nothing to do.")
		return nil
	}

	// Enrich synchronously: the process exits right after, so a background
	// pass would be cut off mid-write.
	var attached []duck.AttachedTable
	for _, res := range results {
		if res.Success && res.Action == "attach" {
			attached = append(attached, res.Tables...)
		}
	}
	if len(attached) > 0 {
		enricher := enrich.NewEnricher(log.Logger())
		if err := enricher.Enrich(workspace, syncConversation, attached); err != nil {
			log.Conversation(syncConversation).Warn("business-context enrichment failed", zap.Error(err))
		}
	}

	out, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
