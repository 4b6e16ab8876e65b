/*
Copyright 2025 IBI Reports Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// toolCommands lists the statically registered report tools.
func toolCommands(b *leaklensInstance) *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "list registered report tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, d := range b.engine.Tools() {
				fmt.Printf("%s\n  %s\n  inputs: %s\n", d.ID(), d.Description, strings.Join(d.Inputs, ", "))
			}
			return nil
		},
	}
}
