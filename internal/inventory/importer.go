// Package inventory loads the onboarding file: batteries and customers
// are created out-of-band, not by the lending workflows, and this importer
// is how they enter the store. Reruns are idempotent; records are matched
// on their human-assigned identifiers.
package inventory

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/oklog/ulid/v2"
	"gopkg.in/yaml.v3"

	"battery-rental-backend/internal/model"
	"battery-rental-backend/internal/store"
)

// File is the on-disk shape of an inventory file.
type File struct {
	Assets    []AssetRecord    `yaml:"assets"`
	Customers []CustomerRecord `yaml:"customers"`
}

// AssetRecord describes one battery to onboard.
type AssetRecord struct {
	Number string `yaml:"number"`
	Color  string `yaml:"color"`
	Market string `yaml:"market"`
}

// CustomerRecord describes one customer to onboard.
type CustomerRecord struct {
	Name         string `yaml:"name"`
	Market       string `yaml:"market"`
	Mobile       string `yaml:"mobile"`
	Address      string `yaml:"address"`
	SerialNumber string `yaml:"serial_number"`
	Inactive     bool   `yaml:"inactive"`
}

// Importer batch-upserts an inventory file into the store.
type Importer struct {
	store store.Store
}

// NewImporter creates an importer over the given store.
func NewImporter(s store.Store) *Importer {
	return &Importer{store: s}
}

// ImportFile reads and imports one inventory file.
func (i *Importer) ImportFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read inventory file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse inventory file: %w", err)
	}
	return i.Import(ctx, &f)
}

// Import upserts the file's assets and customers. Newly minted ids are
// only used on insert; existing records keep their id and their status.
func (i *Importer) Import(ctx context.Context, f *File) error {
	assets := make([]model.Asset, 0, len(f.Assets))
	for _, r := range f.Assets {
		if r.Number == "" {
			log.Printf("inventory: skipping asset record with empty number")
			continue
		}
		id, err := newID()
		if err != nil {
			return err
		}
		assets = append(assets, model.Asset{
			ID:     id,
			Number: r.Number,
			Status: model.AssetAvailable,
			Color:  r.Color,
			Market: r.Market,
		})
	}

	customers := make([]model.Customer, 0, len(f.Customers))
	for _, r := range f.Customers {
		if r.SerialNumber == "" || r.Name == "" {
			log.Printf("inventory: skipping customer record %q without serial number or name", r.Name)
			continue
		}
		id, err := newID()
		if err != nil {
			return err
		}
		active := 1
		if r.Inactive {
			active = 0
		}
		customers = append(customers, model.Customer{
			ID:           id,
			Name:         r.Name,
			Market:       r.Market,
			Mobile:       r.Mobile,
			Address:      r.Address,
			SerialNumber: r.SerialNumber,
			IsActive:     active,
		})
	}

	if len(assets) > 0 {
		log.Printf("inventory: upserting %d assets...", len(assets))
		if err := i.store.UpsertAssets(ctx, assets); err != nil {
			return err
		}
	}
	if len(customers) > 0 {
		log.Printf("inventory: upserting %d customers...", len(customers))
		if err := i.store.UpsertCustomers(ctx, customers); err != nil {
			return err
		}
	}
	return nil
}

func newID() (string, error) {
	id, err := ulid.New(ulid.Timestamp(time.Now().UTC()), ulid.Monotonic(rand.Reader, 0))
	if err != nil {
		return "", fmt.Errorf("failed to mint id: %w", err)
	}
	return id.String(), nil
}
