package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"os"
	"strings"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/utils"
)

// BootstrapParams adalah parameter mentah dari URL embed (Power Apps / email
// link). Param bisa datang polos di top-level atau terbungkus (dan ter-encode
// ganda) di dalam "data".
type BootstrapParams struct {
	Data         string // query string terbungkus, mungkin encoded dua kali
	CustomerID   string
	RecordID     string
	SaleID       string
	HistoryValue string // snapshot JSON inline, prioritas di atas store
	Department   string
	Role         string
}

// BootstrapResult adalah konteks sesi yang sudah diputuskan plus snapshot
// restore (kalau ada).
type BootstrapResult struct {
	CustomerID models.RecordID
	RecordID   models.RecordID
	SaleID     string
	Role       models.Role
	Department string

	Snapshot       *models.WorkflowSnapshot
	SnapshotSource string // "url" | "store" | "none"
}

var ErrMissingCustomer = errors.New("customer id missing from bootstrap params")

// devFallbackEnabled -> id default dev hanya aktif kalau diminta eksplisit;
// di produksi param yang hilang harus jadi error, bukan diam-diam pakai
// customer test.
func devFallbackEnabled() bool {
	return os.Getenv("DEV_FALLBACK_IDS") == "true"
}

const (
	devCustomerID = "c585ae98-4585-f011-b4cc-6045bd1d396f"
	devSaleID     = "829bde80-1c54-ed11-9562-000d3ac7ccec"
)

// ResolveBootstrap menurunkan konteks sesi dari parameter embed:
// unwrap "data", pilih sumber snapshot (URL dulu, baru store), lalu tentukan
// role (role eksplisit > department > admin).
func ResolveBootstrap(ctx context.Context, params BootstrapParams, store HistoryStore) (*BootstrapResult, error) {
	unwrapDataParam(&params)

	if params.SaleID == "" && devFallbackEnabled() {
		utils.InfoLogger.Printf("dev mode: using test sale id")
		params.SaleID = devSaleID
	}

	if isBlankID(params.CustomerID) {
		if !devFallbackEnabled() {
			return nil, ErrMissingCustomer
		}
		utils.InfoLogger.Printf("dev mode: using test customer id")
		params.CustomerID = devCustomerID
	}

	result := &BootstrapResult{
		CustomerID:     models.NewRecordID(params.CustomerID),
		RecordID:       models.NewRecordID(params.RecordID),
		SaleID:         params.SaleID,
		Department:     params.Department,
		SnapshotSource: "none",
	}

	// Snapshot dari URL menang atas store: link yang membawa historyValue
	// memang dimaksudkan membekukan state persis saat link dibuat.
	if params.HistoryValue != "" {
		if snap := parseInlineHistory(params.HistoryValue); snap != nil {
			result.Snapshot = snap
			result.SnapshotSource = "url"
		}
	}
	if result.Snapshot == nil && !result.RecordID.IsZero() {
		snap, err := store.ReadSnapshot(ctx, result.RecordID)
		if err != nil {
			utils.ErrorLogger.Printf("could not fetch history for record %s: %v", result.RecordID, err)
		} else if snap != nil {
			result.Snapshot = snap
			result.SnapshotSource = "store"
		}
	}

	result.Role = resolveRole(params.Role, params.Department)
	return result, nil
}

// unwrapDataParam membongkar param "data" terbungkus. Beberapa pengirim
// meng-encode query dua kali; decode kedua hanya dipakai kalau hasilnya
// benar-benar bersih dari '%'.
func unwrapDataParam(params *BootstrapParams) {
	if params.Data == "" {
		return
	}

	decoded, err := url.QueryUnescape(params.Data)
	if err != nil {
		utils.ErrorLogger.Printf("failed to decode data param: %v", err)
		return
	}
	if strings.Contains(decoded, "%") || strings.Contains(decoded, "http") {
		if second, err := url.QueryUnescape(decoded); err == nil && !strings.Contains(second, "%") {
			decoded = second
		}
	}

	inner, err := url.ParseQuery(decoded)
	if err != nil {
		utils.ErrorLogger.Printf("failed to parse wrapped data param: %v", err)
		return
	}

	if params.CustomerID == "" {
		params.CustomerID = inner.Get("customerId")
	}
	if params.RecordID == "" {
		params.RecordID = inner.Get("recordId")
	}
	if params.SaleID == "" {
		params.SaleID = inner.Get("saleID")
	}
	if params.HistoryValue == "" {
		params.HistoryValue = inner.Get("historyValue")
	}
	if params.Department == "" {
		params.Department = inner.Get("department")
		if params.Department == "" {
			params.Department = inner.Get("phongBan")
		}
	}
}

// parseInlineHistory mencoba decode-lalu-parse, fallback parse mentah.
// Gagal dua-duanya -> nil, sesi lanjut tanpa restore.
func parseInlineHistory(raw string) *models.WorkflowSnapshot {
	var snap models.WorkflowSnapshot
	if decoded, err := url.QueryUnescape(raw); err == nil {
		if err := json.Unmarshal([]byte(decoded), &snap); err == nil {
			return &snap
		}
	}
	if err := json.Unmarshal([]byte(raw), &snap); err == nil {
		return &snap
	}
	utils.ErrorLogger.Printf("failed to parse history from url, ignoring")
	return nil
}

func resolveRole(explicit, department string) models.Role {
	if explicit != "" {
		if role, ok := models.ParseRole(explicit); ok {
			return role
		}
	}
	if department != "" {
		return models.DepartmentRole(department)
	}
	return models.RoleAdmin
}

func isBlankID(id string) bool {
	return models.NewRecordID(id).IsZero()
}
