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
	"bytes"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

func (a *app) newDecryptCmd() *cobra.Command {
	var in, out, ptb, dataKeyFile string

	cmd := &cobra.Command{
		Use:   "decrypt",
		Short: "Decrypt an encrypted object",
		Long: `Decrypt an encrypted object. Keys are fetched from the key servers
named in the object, which must also be present in the configuration; the
command stops contacting servers once the threshold is reached.

With --data-key the object is opened with a backed-up data key and no key
server is contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			encoded, err := readInput(cmd.InOrStdin(), in)
			if err != nil {
				return err
			}
			obj, err := seal.ParseEncryptedObject(encoded)
			if err != nil {
				return err
			}

			if dataKeyFile != "" {
				raw, err := readInput(cmd.InOrStdin(), dataKeyFile)
				if err != nil {
					return err
				}
				dataKey, err := hex.DecodeString(string(bytes.TrimSpace(raw)))
				if err != nil {
					return fmt.Errorf("invalid data key: %w", err)
				}
				defer clear(dataKey)
				plaintext, err := seal.DecryptWithDataKey(obj, dataKey)
				if err != nil {
					return err
				}
				return a.writeOutput(out, plaintext)
			}

			var ptbBytes []byte
			if ptb != "" {
				if ptbBytes, err = base64.StdEncoding.DecodeString(ptb); err != nil {
					return fmt.Errorf("invalid --ptb: %w", err)
				}
			}

			ctx := cmd.Context()
			kc := a.keyServerClient()
			client, err := a.sealClient(ctx, kc)
			if err != nil {
				return err
			}

			servers := client.Servers(obj)
			a.logger.DebugContext(ctx, "Fetching keys",
				logging.String("package_id", obj.PackageID.String()),
				logging.Int("threshold", int(obj.Threshold)),
				logging.Int("known_servers", len(servers)))

			req := &keyserver.KeyRequest{PackageID: obj.PackageID, ID: obj.ID, PTB: ptbBytes}
			if err := kc.FetchKeys(ctx, servers, req, client.Cache(), int(obj.Threshold)); err != nil {
				return err
			}
			plaintext, err := client.Decrypt(ctx, obj)
			if err != nil {
				return err
			}
			return a.writeOutput(out, plaintext)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&in, "in", "i", "-", "encrypted object file, - for stdin")
	f.StringVarP(&out, "out", "O", "-", "plaintext file, - for stdout")
	f.StringVar(&ptb, "ptb", "", "base64 policy transaction passed to the key servers")
	f.StringVar(&dataKeyFile, "data-key", "", "file holding a hex data key")
	return cmd
}
