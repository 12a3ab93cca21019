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
	"encoding/hex"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/dem"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

func (a *app) newEncryptCmd() *cobra.Command {
	var (
		packageID  string
		id         string
		in, out    string
		threshold  int
		variant    string
		aad        string
		dataKeyOut string
	)

	cmd := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt data to the configured key servers",
		Long: `Encrypt a file for the identity package||id. Any threshold of the
configured key servers can later release the keys needed to decrypt it.

The data key can be written to --data-key-out as an out-of-band backup; keep
it apart from the encrypted object.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			pkg, err := seal.ParseObjectID(packageID)
			if err != nil {
				return err
			}
			rawID, err := parseIdentity(id)
			if err != nil {
				return err
			}
			req := &seal.EncryptRequest{PackageID: pkg, ID: rawID, Threshold: threshold}
			if variant != "" {
				v, err := dem.ParseVariant(variant)
				if err != nil {
					return err
				}
				req.Variant = &v
			}
			if cmd.Flags().Changed("aad") {
				req.AAD = []byte(aad)
			}

			plaintext, err := readInput(cmd.InOrStdin(), in)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			client, err := a.sealClient(ctx, a.keyServerClient())
			if err != nil {
				return err
			}
			dataKey, obj, err := client.Encrypt(ctx, plaintext, req)
			if err != nil {
				return err
			}
			defer clear(dataKey)

			encoded, err := obj.MarshalBinary()
			if err != nil {
				return err
			}
			if err := a.writeOutput(out, encoded); err != nil {
				return err
			}
			if dataKeyOut != "" {
				if err := a.writeOutput(dataKeyOut, []byte(hex.EncodeToString(dataKey)+"\n")); err != nil {
					return err
				}
			}
			if out == "" || out == "-" {
				return nil
			}

			servers := make([]string, len(obj.Services))
			for i, s := range obj.Services {
				servers[i] = s.ObjectID.String()
			}
			return a.printer().PrintEncryptResult(&EncryptResult{
				PackageID: pkg.String(),
				ID:        hex.EncodeToString(rawID),
				Threshold: int(obj.Threshold),
				Servers:   servers,
				Variant:   obj.Ciphertext.Variant().String(),
				Bytes:     len(plaintext),
				Output:    out,
			})
		},
	}

	f := cmd.Flags()
	f.StringVar(&packageID, "package", "", "package object id (required)")
	f.StringVar(&id, "id", "", "inner identity, raw text or 0x-prefixed hex (required)")
	f.StringVarP(&in, "in", "i", "-", "plaintext file, - for stdin")
	f.StringVarP(&out, "out", "O", "-", "encrypted object file, - for stdout")
	f.IntVar(&threshold, "threshold", 0, "key servers needed to decrypt (default from config)")
	f.StringVar(&variant, "variant", "", "aes-256-gcm or hmac-256-ctr (default from config)")
	f.StringVar(&aad, "aad", "", "additional authenticated data")
	f.StringVar(&dataKeyOut, "data-key-out", "", "write the hex data key to this file")
	_ = cmd.MarkFlagRequired("package")
	_ = cmd.MarkFlagRequired("id")
	return cmd
}

// parseIdentity accepts raw text or 0x-prefixed hex.
func parseIdentity(s string) ([]byte, error) {
	if h, ok := strings.CutPrefix(s, "0x"); ok {
		return hex.DecodeString(h)
	}
	return []byte(s), nil
}
