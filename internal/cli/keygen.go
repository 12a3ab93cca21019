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
	"encoding/base64"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viol3/Sui-Unity-SDK-sub000/internal/config"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/crypto/ibe"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/keyserver"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/logging"
	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

func (a *app) newKeygenCmd() *cobra.Command {
	var objectID, storagePath string

	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Create or load a key server master key",
		Long: `Create a master key for a key server, or load the existing one, and
print its public key. With file storage the key is persisted and reused by
"seal serve"; add the public key to the client key_servers list.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ks := &a.cfg.KeyServer
			if cmd.Flags().Changed("object-id") {
				ks.ObjectID = objectID
			}
			if cmd.Flags().Changed("storage-path") {
				ks.Storage = config.StorageConfig{Backend: config.StorageFile, Path: storagePath}
			}

			id, err := seal.ParseObjectID(ks.ObjectID)
			if err != nil {
				return err
			}
			backend, err := openStorage(&ks.Storage)
			if err != nil {
				return err
			}
			defer backend.Close()

			if ks.Storage.Backend == config.StorageMemory {
				a.logger.Warn("Master key is not persisted with the memory backend",
					logging.String("object_id", id.String()))
			}

			msk, created, err := keyserver.LoadOrCreateMasterKey(backend, id, nil)
			if err != nil {
				return err
			}
			raw := msk.Bytes()
			a.logger.Info("Master key ready",
				logging.String("object_id", id.String()),
				logging.Bool("created", created),
				logging.Redacted("master_key", raw))
			clear(raw)

			location := ks.Storage.Backend
			if ks.Storage.Path != "" {
				location = fmt.Sprintf("%s:%s", ks.Storage.Backend, ks.Storage.Path)
			}
			return a.printer().PrintKeygen(&KeygenResult{
				ObjectID:  id.String(),
				PublicKey: base64.StdEncoding.EncodeToString(ibe.PublicKey(msk).Bytes()),
				Created:   created,
				Storage:   location,
			})
		},
	}

	cmd.Flags().StringVar(&objectID, "object-id", "", "key server object id (default from config)")
	cmd.Flags().StringVar(&storagePath, "storage-path", "", "directory for file storage of the master key")
	return cmd
}
