package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/yeremiapane/shortage-app/models"
	"github.com/yeremiapane/shortage-app/utils"
	"github.com/yeremiapane/shortage-app/workflow"
)

// OrderProvider adalah kontrak platform data eksternal untuk master data.
// Setiap LineItem hasil FetchLineItems datang dengan QtyAvailable=0 dan status
// diturunkan dari nol itu -- rekonsiliasi history terjadi setelahnya, bukan di
// dalam provider.
type OrderProvider interface {
	FetchCustomer(ctx context.Context, id models.RecordID) (*models.Customer, error)
	FetchOrders(ctx context.Context, customerID models.RecordID) ([]models.SalesOrder, error)
	FetchLineItems(ctx context.Context, orderID, soNumber string) ([]models.LineItem, error)
}

// HistoryStore membaca/menulis WorkflowSnapshot sebagai blob opaque.
// ReadSnapshot wajib mengembalikan (nil, nil) untuk record id kosong, snapshot
// yang tidak ada, atau JSON yang rusak -- tidak pernah error fatal untuk itu.
type HistoryStore interface {
	ReadSnapshot(ctx context.Context, recordID models.RecordID) (*models.WorkflowSnapshot, error)
	WriteSnapshot(ctx context.Context, recordID models.RecordID, snap *models.WorkflowSnapshot) error
}

// Outbox mencatat intent notifikasi sinkron dengan transisinya; pengiriman
// dilakukan terpisah oleh OutboxDispatcher.
type Outbox interface {
	Enqueue(intent models.NotificationIntent)
}

// SessionContext adalah konteks eksplisit satu sesi user -- tidak ada state
// ambient/global: role, record id, dan customer id semuanya lewat sini.
type SessionContext struct {
	SessionID  string          `json:"session_id"`
	CustomerID models.RecordID `json:"customer_id"`
	RecordID   models.RecordID `json:"record_id"`
	SaleID     string          `json:"sale_id,omitempty"`
	Role       models.Role     `json:"role"`
	Department string          `json:"department,omitempty"`
}

// ErrStaleSelection menandai response SelectOrder yang datang terlambat:
// user sudah pindah ke order lain, hasil fetch dibuang.
var ErrStaleSelection = errors.New("order selection superseded")

// Orchestrator memiliki koleksi line item untuk order yang sedang dipilih satu
// sesi dan menjadi satu-satunya permukaan mutasi workflow. Setiap aksi role:
// state machine -> apply lokal optimis -> intent outbox -> persist snapshot
// async. Kegagalan persist/notify hanya dicatat log, tidak pernah mem-rollback
// state lokal.
type Orchestrator struct {
	mu sync.Mutex

	provider OrderProvider
	store    HistoryStore
	outbox   Outbox
	policy   workflow.ReopenPolicy

	sess     SessionContext
	customer *models.Customer
	orders   []models.SalesOrder

	orderID     string
	orderNumber string
	items       []models.LineItem
	snapshot    *models.WorkflowSnapshot

	// generation naik setiap SelectOrder; response fetch yang kalah cepat
	// dengan selection berikutnya dibuang, tidak menimpa koleksi.
	generation uint64

	persistWG sync.WaitGroup
	now       func() time.Time
}

func NewOrchestrator(provider OrderProvider, store HistoryStore, outbox Outbox, sess SessionContext, policy workflow.ReopenPolicy) *Orchestrator {
	return &Orchestrator{
		provider: provider,
		store:    store,
		outbox:   outbox,
		policy:   policy,
		sess:     sess,
		now:      time.Now,
	}
}

func (o *Orchestrator) setSessionID(id string) {
	o.mu.Lock()
	o.sess.SessionID = id
	o.mu.Unlock()
}

func (o *Orchestrator) Context() SessionContext {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess
}

func (o *Orchestrator) Role() models.Role {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess.Role
}

// SetCustomer menyimpan hasil fetch customer saat bootstrap.
func (o *Orchestrator) SetCustomer(c *models.Customer) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.customer = c
}

func (o *Orchestrator) Customer() *models.Customer {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.customer
}

func (o *Orchestrator) SetOrders(orders []models.SalesOrder) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.orders = orders
}

func (o *Orchestrator) Orders() []models.SalesOrder {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.SalesOrder, len(o.orders))
	copy(out, o.orders)
	return out
}

// SetSnapshot memasang snapshot hasil bootstrap (dari URL atau history store)
// sebelum order pertama dipilih.
func (o *Orchestrator) SetSnapshot(snap *models.WorkflowSnapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.snapshot = snap
}

func (o *Orchestrator) Snapshot() *models.WorkflowSnapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshot
}

// SelectOrder meng-fetch line item order, meng-overlay snapshot yang dikenal,
// lalu mengganti koleksi. Kalau fetch gagal, koleksi sebelumnya tidak
// tersentuh. Response yang didahului selection lebih baru dibuang dengan
// ErrStaleSelection.
func (o *Orchestrator) SelectOrder(ctx context.Context, order models.SalesOrder) ([]models.LineItem, error) {
	o.mu.Lock()
	o.generation++
	gen := o.generation
	snap := o.snapshot
	o.mu.Unlock()

	fresh, err := o.provider.FetchLineItems(ctx, order.ID, order.SONumber)
	if err != nil {
		return nil, err
	}

	merged := workflow.MergeSnapshot(fresh, snap)

	o.mu.Lock()
	defer o.mu.Unlock()
	if gen != o.generation {
		return nil, ErrStaleSelection
	}
	o.orderID = order.ID
	o.orderNumber = order.SONumber
	o.items = merged
	return o.itemsLocked(), nil
}

func (o *Orchestrator) Items() []models.LineItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.itemsLocked()
}

func (o *Orchestrator) itemsLocked() []models.LineItem {
	out := make([]models.LineItem, 0, len(o.items))
	for _, item := range o.items {
		out = append(out, item.Clone())
	}
	return out
}

// Item -> lookup satu item by id (ternormalisasi)
func (o *Orchestrator) Item(itemID string) (models.LineItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.findLocked(itemID)
}

func (o *Orchestrator) findLocked(itemID string) (models.LineItem, bool) {
	want := models.NewRecordID(itemID)
	for _, item := range o.items {
		if models.NewRecordID(item.ID) == want {
			return item.Clone(), true
		}
	}
	return models.LineItem{}, false
}

// ApplyItemUpdate mengganti satu item di koleksi secara lokal; tidak persist.
func (o *Orchestrator) ApplyItemUpdate(item models.LineItem) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.applyLocked(item)
}

func (o *Orchestrator) applyLocked(item models.LineItem) {
	want := models.NewRecordID(item.ID)
	for i := range o.items {
		if models.NewRecordID(o.items[i].ID) == want {
			o.items[i] = item.Clone()
			return
		}
	}
}

// CommitAndPersist membangun snapshot dari koleksi sekarang, menyimpannya
// sebagai snapshot aktif, dan menulisnya ke store secara async best-effort.
// No-op total (tanpa write) kalau record id tidak dikenal.
func (o *Orchestrator) CommitAndPersist() {
	o.mu.Lock()
	snap := o.buildSnapshotLocked()
	recordID := o.sess.RecordID
	o.mu.Unlock()
	o.persistAsync(recordID, snap)
}

func (o *Orchestrator) buildSnapshotLocked() *models.WorkflowSnapshot {
	snap := workflow.BuildSnapshot(o.items, models.SnapshotContext{
		OrderID:     o.orderID,
		OrderNumber: o.orderNumber,
	}, o.now())
	o.snapshot = snap
	return snap
}

func (o *Orchestrator) persistAsync(recordID models.RecordID, snap *models.WorkflowSnapshot) {
	if recordID.IsZero() {
		return
	}
	o.persistWG.Add(1)
	go func() {
		defer o.persistWG.Done()
		// write gagal hanya dicatat: mutasi sukses berikutnya menulis snapshot
		// penuh yang baru, jadi satu write yang hilang sembuh sendiri.
		if err := o.store.WriteSnapshot(context.Background(), recordID, snap); err != nil {
			utils.ErrorLogger.Printf("snapshot write failed for record %s: %v", recordID, err)
		}
	}()
}

// Flush menunggu write snapshot yang masih in-flight (dipakai saat shutdown
// dan di test).
func (o *Orchestrator) Flush() {
	o.persistWG.Wait()
}

// SetAvailable -> aksi Warehouse: update qty available lalu persist.
// Tidak ada notifikasi untuk edit qty.
func (o *Orchestrator) SetAvailable(itemID string, qty int) (models.LineItem, bool) {
	o.mu.Lock()
	item, found := o.findLocked(itemID)
	if !found {
		o.mu.Unlock()
		return models.LineItem{}, false
	}
	next, ok := workflow.SetAvailable(item, o.sess.Role, qty, o.policy)
	if !ok {
		o.mu.Unlock()
		return item, false
	}
	o.applyLocked(next)
	snap := o.buildSnapshotLocked()
	recordID := o.sess.RecordID
	o.mu.Unlock()

	o.persistAsync(recordID, snap)
	return next, true
}

// SendShortageNotice -> aksi Warehouse: kunci qty, notifikasi Sale.
func (o *Orchestrator) SendShortageNotice(itemID string) (models.LineItem, bool) {
	return o.transact(itemID,
		func(item models.LineItem) (models.LineItem, bool) {
			return workflow.SendShortageNotice(item, o.sess.Role)
		},
		func(next models.LineItem) []models.NotificationIntent {
			return []models.NotificationIntent{shortageNoticeIntent(next, o.now())}
		})
}

// DecideSale -> keputusan Sale. SHIP_PARTIAL memberi tahu Warehouse qty yang
// dikirim; WAIT_ALL meneruskan shortage ke Source.
func (o *Orchestrator) DecideSale(itemID string, action models.SaleAction) (models.LineItem, bool) {
	return o.transact(itemID,
		func(item models.LineItem) (models.LineItem, bool) {
			return workflow.DecideSale(item, o.sess.Role, action, o.now())
		},
		func(next models.LineItem) []models.NotificationIntent {
			if action == models.SaleShipPartial {
				return []models.NotificationIntent{
					partialShipmentIntent(next, o.now()),
					shipDecisionIntent(next, next.QtyAvailable, o.now()),
				}
			}
			return []models.NotificationIntent{waitDecisionIntent(next, o.now())}
		})
}

// ConfirmSourcePlan -> aksi Source: set ETA + supplier, notifikasi balik Sale.
func (o *Orchestrator) ConfirmSourcePlan(itemID, eta, supplier string) (models.LineItem, bool) {
	return o.transact(itemID,
		func(item models.LineItem) (models.LineItem, bool) {
			return workflow.ConfirmSourcePlan(item, o.sess.Role, eta, supplier, o.now())
		},
		func(next models.LineItem) []models.NotificationIntent {
			return []models.NotificationIntent{sourcePlanIntent(next, o.now())}
		})
}

// transact menjalankan satu transisi: state machine -> apply -> intent outbox
// -> persist. Intent di-enqueue setelah apply; dispatcher yang mengirim, jadi
// kegagalan kirim tidak mungkin memblokir atau membatalkan transisi.
func (o *Orchestrator) transact(itemID string, step func(models.LineItem) (models.LineItem, bool), intents func(models.LineItem) []models.NotificationIntent) (models.LineItem, bool) {
	o.mu.Lock()
	item, found := o.findLocked(itemID)
	if !found {
		o.mu.Unlock()
		return models.LineItem{}, false
	}
	next, ok := step(item)
	if !ok {
		o.mu.Unlock()
		return item, false
	}
	o.applyLocked(next)
	snap := o.buildSnapshotLocked()
	recordID := o.sess.RecordID
	o.mu.Unlock()

	for _, intent := range intents(next) {
		o.outbox.Enqueue(intent)
	}
	o.persistAsync(recordID, snap)
	return next, true
}
