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
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/viol3/Sui-Unity-SDK-sub000/pkg/seal"
)

// OutputFormat defines the output format type
type OutputFormat string

const (
	OutputFormatText OutputFormat = "text"
	OutputFormatJSON OutputFormat = "json"
)

// Printer handles formatted output
type Printer struct {
	format OutputFormat
	writer io.Writer
}

// NewPrinter creates a new Printer
func NewPrinter(format string, writer io.Writer) *Printer {
	return &Printer{
		format: OutputFormat(format),
		writer: writer,
	}
}

// KeygenResult describes a key server master key.
type KeygenResult struct {
	ObjectID  string `json:"object_id"`
	PublicKey string `json:"public_key"`
	Created   bool   `json:"created"`
	Storage   string `json:"storage"`
}

// EncryptResult summarizes one encryption.
type EncryptResult struct {
	PackageID string   `json:"package_id"`
	ID        string   `json:"id"`
	Threshold int      `json:"threshold"`
	Servers   []string `json:"servers"`
	Variant   string   `json:"variant"`
	Bytes     int      `json:"bytes"`
	Output    string   `json:"output"`
}

// PrintKeygen prints a master key result.
func (p *Printer) PrintKeygen(r *KeygenResult) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(r)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Object ID:  %s\n", r.ObjectID)
		fmt.Fprintf(p.writer, "Public Key: %s\n", r.PublicKey)
		fmt.Fprintf(p.writer, "Storage:    %s\n", r.Storage)
		if r.Created {
			fmt.Fprintln(p.writer, "A new master key was generated.")
		} else {
			fmt.Fprintln(p.writer, "Using the existing master key.")
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintEncryptResult prints an encryption summary.
func (p *Printer) PrintEncryptResult(r *EncryptResult) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(r)
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Encrypted %d bytes to %s\n", r.Bytes, r.Output)
		fmt.Fprintf(p.writer, "  Package:   %s\n", r.PackageID)
		fmt.Fprintf(p.writer, "  ID:        %s\n", r.ID)
		fmt.Fprintf(p.writer, "  Threshold: %d of %d\n", r.Threshold, len(r.Servers))
		fmt.Fprintf(p.writer, "  Variant:   %s\n", r.Variant)
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintObject prints the public header of an encrypted object.
func (p *Printer) PrintObject(obj *seal.EncryptedObject) error {
	services := make([]map[string]any, len(obj.Services))
	for i, s := range obj.Services {
		services[i] = map[string]any{
			"object_id": s.ObjectID.String(),
			"index":     s.Index,
		}
	}

	var blobLen, aadLen int
	hasAAD := false
	switch c := obj.Ciphertext.(type) {
	case *seal.AESGCMCiphertext:
		blobLen, aadLen, hasAAD = len(c.Blob), len(c.AAD), c.AAD != nil
	case *seal.HMACCTRCiphertext:
		blobLen, aadLen, hasAAD = len(c.Blob), len(c.AAD), c.AAD != nil
	}

	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"version":    obj.Version,
			"package_id": obj.PackageID.String(),
			"id":         hex.EncodeToString(obj.ID),
			"threshold":  obj.Threshold,
			"services":   services,
			"variant":    obj.Ciphertext.Variant().String(),
			"blob_bytes": blobLen,
			"aad":        hasAAD,
			"aad_bytes":  aadLen,
		})
	case OutputFormatText:
		fmt.Fprintf(p.writer, "Version:    %d\n", obj.Version)
		fmt.Fprintf(p.writer, "Package ID: %s\n", obj.PackageID)
		fmt.Fprintf(p.writer, "ID:         %s\n", hex.EncodeToString(obj.ID))
		fmt.Fprintf(p.writer, "Threshold:  %d of %d\n", obj.Threshold, len(obj.Services))
		fmt.Fprintf(p.writer, "Variant:    %s\n", obj.Ciphertext.Variant())
		fmt.Fprintf(p.writer, "Ciphertext: %d bytes\n", blobLen)
		if hasAAD {
			fmt.Fprintf(p.writer, "AAD:        %d bytes\n", aadLen)
		}
		fmt.Fprintln(p.writer, "Services:")
		fmt.Fprintf(p.writer, "  %-6s %s\n", "INDEX", "OBJECT ID")
		fmt.Fprintln(p.writer, "  "+strings.Repeat("-", 73))
		for _, s := range obj.Services {
			fmt.Fprintf(p.writer, "  %-6d %s\n", s.Index, s.ObjectID)
		}
		return nil
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}

// PrintError prints an error message
func (p *Printer) PrintError(err error) error {
	switch p.format {
	case OutputFormatJSON:
		return p.printJSON(map[string]any{
			"error": err.Error(),
		})
	default:
		_, e := fmt.Fprintf(p.writer, "Error: %v\n", err)
		return e
	}
}

// printJSON prints data as JSON
func (p *Printer) printJSON(data any) error {
	encoder := json.NewEncoder(p.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
