// Copyright (c) 2025 Jeremy Hahn
// Copyright (c) 2025 Automate The Things, LLC
//
// This file is part of go-seal.
//
// go-seal is dual-licensed:
//
// 1. GNU Affero General Public License v3.0 (AGPL-3.0)
//    See LICENSE file or visit https://www.gnu.org/licenses/agpl-3.0.html
//
// 2. Commercial License
//    Contact licensing@automatethethings.com for commercial licensing options.

package cli

import (
	"github.com/spf13/cobra"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

func (a *app) newInspectCmd() *cobra.Command {
	var in string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the header of an encrypted object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded, err := readInput(cmd.InOrStdin(), in)
			if err != nil {
				return err
			}
			obj, err := seal.ParseEncryptedObject(encoded)
			if err != nil {
				return err
			}
			return a.printer().PrintObject(obj)
		},
	}
	cmd.Flags().StringVarP(&in, "in", "i", "-", "encrypted object file, - for stdin")
	return cmd
}
