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

	"github.com/oxbow-labs/oxbow/internal/log"
	"github.com/oxbow-labs/oxbow/pkg/enrich"
	"github.com/oxbow-labs/oxbow/pkg/tools"
)

var (
	schemaConversation string
	schemaViews        []string
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Show every queryable table in a conversation's database",
	RunE:  runSchema,
}

func init() {
	schemaCmd.Flags().StringVarP(&schemaConversation, "conversation", "c", "", "Conversation id")
	schemaCmd.Flags().StringSliceVarP(&schemaViews, "view", "v", nil, "Describe only these views (repeatable)")
	_ = schemaCmd.MarkFlagRequired("conversation")
}

func runSchema(cmd *cobra.Command, args []string) error {
	manager := newManager()
	defer manager.CloseAll()

	params := map[string]interface{}{
		"conversation_id": schemaConversation,
		"workspace":       workspace,
	}
	if len(schemaViews) > 0 {
		names := make([]interface{}, len(schemaViews))
		for i, v := range schemaViews {
			names[i] = v
		}
		params["view_names"] = names
	}

	tool := tools.NewGetSchemaTool(manager, enrich.NewEnricher(log.Logger()), log.Logger())
	result, err := tool.Execute(cmd.Context(), params)
	if err != nil {
		return err
	}
	if !result.Success {
		return fmt.Errorf("%s: %s", result.Error.Code, result.Error.Message)
	}

	out, err := json.MarshalIndent(result.Data, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
