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
	"github.com/oxbow-labs/oxbow/pkg/duck"
)

var queryConversation string

var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "Run SQL against a conversation's database",
	Args:  cobra.ExactArgs(1),
	Example: `  oxbow query -c conv-1 "SELECT * FROM expenses LIMIT 10"
  oxbow query -c conv-1 "SELECT count(*) FROM prod.public.orders"`,
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryConversation, "conversation", "c", "", "Conversation id")
	_ = queryCmd.MarkFlagRequired("conversation")
}

func runQuery(cmd *cobra.Command, args []string) error {
	manager := newManager()
	defer manager.CloseAll()

	executor := duck.NewExecutor(manager, log.Logger())
	result, err := executor.Run(cmd.Context(), queryConversation, workspace, args[0])
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
