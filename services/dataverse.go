package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/utils"
	"github.com/yeremiapane/shortage-app/workflow"
)

// DataverseConfig holds Dataverse connection settings
type DataverseConfig struct {
	OrgURL          string // https://<org>.crm5.dynamics.com
	AuthTriggerURL  string // Power Automate trigger yang menukar token
	DeliveredStatus string // option-set value status "sudah terkirim"
}

// DataverseProvider implements OrderProvider di atas Dataverse Web API, plus
// baca/tulis history remote di kolom crdfd_history tabel crdfd_order_requests.
type DataverseProvider struct {
	config     *DataverseConfig
	httpClient *http.Client

	tokenMu     sync.Mutex
	token       string
	tokenExpiry time.Time

	now func() time.Time
}

const (
	dataverseAPIPath = "/api/data/v9.2/"

	// Token dianggap kadaluarsa 5 menit lebih awal supaya request yang sedang
	// jalan tidak keburu kena 401.
	tokenExpirySlack = 5 * time.Minute
)

func NewDataverseProvider() *DataverseProvider {
	cfg := &DataverseConfig{
		OrgURL:          strings.TrimRight(os.Getenv("DATAVERSE_ORG_URL"), "/"),
		AuthTriggerURL:  os.Getenv("DATAVERSE_AUTH_TRIGGER_URL"),
		DeliveredStatus: os.Getenv("DATAVERSE_STATUS_DELIVERED"),
	}
	if cfg.DeliveredStatus == "" {
		cfg.DeliveredStatus = "191920002"
	}
	return NewDataverseProviderWithConfig(cfg)
}

// NewDataverseProviderWithConfig dipakai test untuk mengarahkan ke httptest.
func NewDataverseProviderWithConfig(cfg *DataverseConfig) *DataverseProvider {
	return &DataverseProvider{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		now: time.Now,
	}
}

// authResponse menoleransi tiga bentuk balasan trigger auth: token dibungkus
// "body", token di top-level, atau field "token" polos.
type authResponse struct {
	Body *struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	} `json:"body"`
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	Token       string `json:"token"`
}

// accessToken mengembalikan token cache selama masih hidup, kalau tidak tukar
// token baru lewat trigger auth.
func (dv *DataverseProvider) accessToken(ctx context.Context) (string, error) {
	dv.tokenMu.Lock()
	defer dv.tokenMu.Unlock()

	if dv.token != "" && dv.now().Before(dv.tokenExpiry.Add(-tokenExpirySlack)) {
		return dv.token, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dv.config.AuthTriggerURL, bytes.NewBufferString("{}"))
	if err != nil {
		return "", fmt.Errorf("failed to create auth request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := dv.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach auth trigger: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("auth trigger returned status %d", resp.StatusCode)
	}

	var auth authResponse
	if err := json.NewDecoder(resp.Body).Decode(&auth); err != nil {
		return "", fmt.Errorf("failed to decode auth response: %v", err)
	}

	token := auth.Token
	expiresIn := 3599
	if auth.Body != nil && auth.Body.AccessToken != "" {
		token = auth.Body.AccessToken
		if auth.Body.ExpiresIn > 0 {
			expiresIn = auth.Body.ExpiresIn
		}
	} else if auth.AccessToken != "" {
		token = auth.AccessToken
		if auth.ExpiresIn > 0 {
			expiresIn = auth.ExpiresIn
		}
	}
	if token == "" {
		return "", fmt.Errorf("token not found in auth response")
	}

	dv.token = token
	dv.tokenExpiry = dv.now().Add(time.Duration(expiresIn) * time.Second)
	return token, nil
}

type odataPage struct {
	Value    []json.RawMessage `json:"value"`
	NextLink string            `json:"@odata.nextLink"`
}

// fetchAll mengikuti @odata.nextLink sampai habis dan mengumpulkan semua baris.
func (dv *DataverseProvider) fetchAll(ctx context.Context, path string) ([]json.RawMessage, error) {
	token, err := dv.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	url := dv.config.OrgURL + dataverseAPIPath + path
	var rows []json.RawMessage
	for url != "" {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create dataverse request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", `odata.include-annotations="*"`)

		resp, err := dv.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to reach dataverse: %v", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			return nil, fmt.Errorf("dataverse api error (%d): %s", resp.StatusCode, string(raw))
		}

		var page odataPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("failed to decode dataverse page: %v", err)
		}

		rows = append(rows, page.Value...)
		url = page.NextLink
	}
	return rows, nil
}

type customerRow struct {
	ID   string `json:"crdfd_customerid"`
	Name string `json:"crdfd_name"`
}

func (dv *DataverseProvider) FetchCustomer(ctx context.Context, id models.RecordID) (*models.Customer, error) {
	token, err := dv.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%scrdfd_customers(%s)?$select=crdfd_customerid,crdfd_name", dv.config.OrgURL, dataverseAPIPath, string(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create customer request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := dv.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach dataverse: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("customer %s not found (status %d)", id, resp.StatusCode)
	}

	var row customerRow
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return nil, fmt.Errorf("failed to decode customer: %v", err)
	}

	name := row.Name
	if name == "" {
		name = "Unnamed customer"
	}
	return &models.Customer{ID: row.ID, Name: name}, nil
}

type orderRow struct {
	ID             string `json:"crdfd_sale_orderid"`
	Name           string `json:"crdfd_name"`
	DeliveryMethod *int   `json:"cr1bb_hinhthucgiaohang"`
	SODCount       int    `json:"crdfd_soonhangchitiet"`
}

// FetchOrders -> daftar sale order aktif milik customer, tanpa yang sudah
// terkirim penuh. SODCount memakai rollup field apa adanya; rollup bisa telat
// tapi cukup untuk badge di daftar order.
func (dv *DataverseProvider) FetchOrders(ctx context.Context, customerID models.RecordID) ([]models.SalesOrder, error) {
	// Nilai $filter mengandung spasi; harus di-encode sebelum masuk request
	// line, server OData menolak URI mentah.
	query := url.Values{}
	query.Set("$select", "crdfd_sale_orderid,crdfd_name,cr1bb_hinhthucgiaohang,crdfd_soonhangchitiet")
	query.Set("$filter", fmt.Sprintf(
		"_crdfd_khachhang_value eq %s and crdfd_trangthaigiaonhan1 ne %s and statecode eq 0",
		string(customerID), dv.config.DeliveredStatus))

	rows, err := dv.fetchAll(ctx, "crdfd_sale_orders?"+query.Encode())
	if err != nil {
		return nil, err
	}

	orders := make([]models.SalesOrder, 0, len(rows))
	for _, raw := range rows {
		var row orderRow
		if err := json.Unmarshal(raw, &row); err != nil {
			utils.ErrorLogger.Printf("skipping malformed sale order row: %v", err)
			continue
		}
		soNumber := row.Name
		if soNumber == "" {
			soNumber = "SO (no number)"
		}
		orders = append(orders, models.SalesOrder{
			ID:             row.ID,
			SONumber:       soNumber,
			DeliveryDate:   "Null",
			DeliveryMethod: row.DeliveryMethod,
			Priority:       "Normal",
			SODCount:       row.SODCount,
		})
	}
	return orders, nil
}

type sodRow struct {
	ID           string `json:"crdfd_saleorderdetailid"`
	Name         string `json:"crdfd_name"`
	QtyRemaining int    `json:"crdfd_soluongconlaitheokhonew"`
	ExDelivery   string `json:"crdfd_exdeliverrydate"`
	ProductName  string `json:"crdfd_tensanphamtext"`
	ProductSKU   string `json:"crdfd_masanpham"`
	Location     string `json:"crdfd_vitrikho"`

	PickingPlans []json.RawMessage `json:"crdfd_kehoachsoanhangdetail_onbanchitiet_crdfd_saleorderdetail"`
}

// FetchLineItems -> detail order yang masuk kanban shortage. Hanya baris yang
// punya dokumen kehoachsoanhang berstatus "tidak ada hàng + sudah masuk
// rencana" yang ikut ($expand adalah left join, jadi difilter lagi di sini).
// QtyAvailable selalu mulai dari 0: angka ketersediaan datang dari input
// Warehouse atau overlay snapshot, tidak pernah dari master data.
func (dv *DataverseProvider) FetchLineItems(ctx context.Context, orderID, soNumber string) ([]models.LineItem, error) {
	expandPlan := "crdfd_kehoachsoanhangdetail_onbanchitiet_crdfd_saleorderdetail(" +
		"$select=crdfd_ton_kho_theo_ke_hoach;" +
		"$filter=statecode eq 0 and crdfd_trangthai eq 283640005 and crdfd_trangthaikehoach eq 1)"

	query := url.Values{}
	query.Set("$select", "crdfd_name,crdfd_saleorderdetailid,crdfd_soluongconlaitheokhonew,"+
		"crdfd_exdeliverrydate,crdfd_tensanphamtext,crdfd_masanpham,crdfd_vitrikho")
	query.Set("$filter", fmt.Sprintf(
		"statecode eq 0 and _crdfd_socode_value eq %s and crdfd_trangthaionhang1 ne %s",
		string(models.NewRecordID(orderID)), dv.config.DeliveredStatus))
	query.Set("$expand", expandPlan)

	rows, err := dv.fetchAll(ctx, "crdfd_saleorderdetails?"+query.Encode())
	if err != nil {
		return nil, err
	}

	items := make([]models.LineItem, 0, len(rows))
	for _, raw := range rows {
		var row sodRow
		if err := json.Unmarshal(raw, &row); err != nil {
			utils.ErrorLogger.Printf("skipping malformed sale order detail row: %v", err)
			continue
		}
		if len(row.PickingPlans) == 0 {
			continue
		}

		detailName := row.Name
		if detailName == "" {
			detailName = "N/A"
		}
		sku := row.ProductSKU
		if sku == "" {
			sku = "UNKNOWN"
		}
		productName := row.ProductName
		if productName == "" {
			productName = "Unnamed product"
		}

		item := models.LineItem{
			ID:                row.ID,
			DetailName:        detailName,
			SONumber:          soNumber,
			Product:           models.Product{SKU: sku, Name: productName},
			QtyOrdered:        row.QtyRemaining,
			QtyDelivered:      0,
			QtyAvailable:      0,
			WarehouseLocation: row.Location,
			// Rencana soan hang dari master data di-seed sebagai plan CONFIRMED.
			// Belum otoritatif: plan hanya dianggap berlaku setelah Sale memilih
			// WAIT_ALL (lihat LineItem.IsSourcePlanConfirmed).
			SourcePlan: &models.SourcePlan{
				Status:    models.SourcePlanConfirmed,
				ETA:       row.ExDelivery,
				Supplier:  "",
				Timestamp: dv.now(),
			},
		}
		item.Status = workflow.InitialStatus(item.RemainingToShip())
		items = append(items, item)
	}
	return items, nil
}

type historyRow struct {
	History string `json:"crdfd_history"`
}

// ReadSnapshot membaca kolom crdfd_history di crdfd_order_requests.
// Seperti GormHistoryStore: hilang atau rusak -> (nil, nil).
func (dv *DataverseProvider) ReadSnapshot(ctx context.Context, recordID models.RecordID) (*models.WorkflowSnapshot, error) {
	if recordID.IsZero() {
		return nil, nil
	}

	token, err := dv.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s%scrdfd_order_requests(%s)?$select=crdfd_history", dv.config.OrgURL, dataverseAPIPath, string(recordID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create history request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := dv.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach dataverse: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		utils.ErrorLogger.Printf("failed to fetch history for record %s (status %d)", recordID, resp.StatusCode)
		return nil, nil
	}

	var row historyRow
	if err := json.NewDecoder(resp.Body).Decode(&row); err != nil {
		return nil, fmt.Errorf("failed to decode history row: %v", err)
	}
	if row.History == "" {
		return nil, nil
	}

	var snap models.WorkflowSnapshot
	if err := json.Unmarshal([]byte(row.History), &snap); err != nil {
		utils.ErrorLogger.Printf("malformed remote history for record %s, starting clean: %v", recordID, err)
		return nil, nil
	}
	return &snap, nil
}

// WriteSnapshot PATCH seluruh blob history (If-Match: * -> last-write-wins).
func (dv *DataverseProvider) WriteSnapshot(ctx context.Context, recordID models.RecordID, snap *models.WorkflowSnapshot) error {
	if recordID.IsZero() {
		return nil
	}

	token, err := dv.accessToken(ctx)
	if err != nil {
		return err
	}

	history, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %v", err)
	}
	payload, err := json.Marshal(map[string]string{"crdfd_history": string(history)})
	if err != nil {
		return fmt.Errorf("failed to marshal history payload: %v", err)
	}

	url := fmt.Sprintf("%s%scrdfd_order_requests(%s)", dv.config.OrgURL, dataverseAPIPath, string(recordID))
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewBuffer(payload))
	if err != nil {
		return fmt.Errorf("failed to create history update: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("If-Match", "*")

	resp, err := dv.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach dataverse: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("failed to save history (status %d): %s", resp.StatusCode, string(raw))
	}
	return nil
}
