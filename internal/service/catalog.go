package service

import (
	"zonectl/internal/commands"
	"zonectl/internal/models"
)

// CatalogService serves the command table loaded at startup.
type CatalogService struct {
	table     *commands.Table
	anomalies []commands.Anomaly
}

func NewCatalogService(table *commands.Table, anomalies []commands.Anomaly) *CatalogService {
	return &CatalogService{
		table:     table,
		anomalies: append([]commands.Anomaly(nil), anomalies...),
	}
}

// Commands returns the table in load order.
func (s *CatalogService) Commands() []models.CommandDef {
	return s.table.All()
}

// Anomalies returns the rows that were skipped or flagged while loading.
func (s *CatalogService) Anomalies() []commands.Anomaly {
	return append([]commands.Anomaly(nil), s.anomalies...)
}
