package documents

import (
	"costdesk/engine/autosave"
	"costdesk/engine/lifecycle"
	"costdesk/engine/rows"
	"costdesk/models"
)

// Document types handled by the editor.
const (
	TypePurchaseOrder   = "purchase_order"
	TypeJobCostSheet    = "job_cost_sheet"
	TypeDeliveryReceipt = "delivery_receipt"
)

// DocTypes lists the creatable document types in menu order.
var DocTypes = []string{TypePurchaseOrder, TypeJobCostSheet, TypeDeliveryReceipt}

func KnownDocType(docType string) bool {
	for _, t := range DocTypes {
		if t == docType {
			return true
		}
	}
	return false
}

// TypeLabel returns the display name for a document type.
func TypeLabel(docType string) string {
	switch docType {
	case TypePurchaseOrder:
		return "Purchase Order"
	case TypeJobCostSheet:
		return "Job Cost Sheet"
	case TypeDeliveryReceipt:
		return "Delivery Receipt"
	default:
		return docType
	}
}

// numberPrefix maps a document type to its document-number prefix.
func numberPrefix(docType string) string {
	switch docType {
	case TypeJobCostSheet:
		return "JC"
	case TypeDeliveryReceipt:
		return "DR"
	default:
		return "PO"
	}
}

// DocumentListItem is one row on the documents index.
type DocumentListItem struct {
	ID          int64  `bun:"id"`
	DocType     string `bun:"doc_type"`
	DocNumber   string `bun:"doc_number"`
	Status      string `bun:"status"`
	Supplier    string `bun:"supplier"`
	JobRef      string `bun:"job_ref"`
	LineCount   int64  `bun:"line_count"`
	UpdatedAtUK string `bun:"updated_at_uk"`
}

// PageData feeds the documents index page.
type PageData struct {
	Items     []DocumentListItem
	CanCreate bool
	Message   string
}

// SectionView is one tabular section of the editor page.
type SectionView struct {
	Name  string
	Title string
	Kind  rows.Kind
	Rows  []rows.Row
}

// EditorPageData feeds the document editor page.
type EditorPageData struct {
	DocumentID  int64
	DocType     string
	DocNumber   string
	Status      lifecycle.Status
	StatusLabel string
	Profile     lifecycle.Profile
	Header      map[string]string
	Sections    []SectionView
	CostCenters []models.CostCenter
	SaveFailed  bool
	Messages    []autosave.Message
	CanEdit     bool
	Message     string
}

// EditState is the JSON body returned by the edit/flush endpoints.
type EditState struct {
	SaveFailed  bool               `json:"saveFailed"`
	Message     string             `json:"message,omitempty"`
	Messages    []autosave.Message `json:"messages,omitempty"`
	Status      string             `json:"status"`
	AssignedIDs map[string]string  `json:"assignedIds,omitempty"`
}
