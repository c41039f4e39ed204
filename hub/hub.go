package hub

import (
	"encoding/json"
	"log"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/yeremiapane/shortage-app/models"
)

// Event types
const (
	EventOrderSelected     = "order_selected"
	EventSodUpdate         = "sod_update"
	EventShortageNotice    = "shortage_notice"
	EventSaleDecision      = "sale_decision"
	EventSourcePlan        = "source_plan"
	EventSnapshotSaved     = "snapshot_saved"
	EventSnapshotRestored  = "snapshot_restored"
	EventStaffNotification = "staff_notification"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub menampung semua client workflow (warehouse, sale, source, viewer, admin)
// per sesi dan channel untuk broadcast
type Hub struct {
	clients map[*websocket.Conn]clientInfo
	mutex   sync.Mutex
}

type clientInfo struct {
	role      models.Role
	sessionID string
}

var workflowHub = Hub{
	clients: make(map[*websocket.Conn]clientInfo),
}

// RegisterClient -> menambahkan connection ke set dengan role + sesi
func RegisterClient(conn *websocket.Conn, role models.Role, sessionID string) {
	workflowHub.mutex.Lock()
	defer workflowHub.mutex.Unlock()
	workflowHub.clients[conn] = clientInfo{role: role, sessionID: sessionID}
}

// UnregisterClient -> melepaskan connection
func UnregisterClient(conn *websocket.Conn) {
	workflowHub.mutex.Lock()
	defer workflowHub.mutex.Unlock()
	delete(workflowHub.clients, conn)
	conn.Close()
}

// BroadcastOrderSelected -> sesi pindah order, client reload papan kanban
func BroadcastOrderSelected(sessionID string, order models.SalesOrder) {
	broadcast(sessionID, Message{
		Event: EventOrderSelected,
		Data:  order,
	})
}

// BroadcastSodUpdate -> satu line item berubah (qty / status)
func BroadcastSodUpdate(sessionID string, item models.LineItem) {
	broadcast(sessionID, Message{
		Event: EventSodUpdate,
		Data:  item,
	})
}

// BroadcastShortageNotice -> gudang mengunci qty dan memberi tahu sale
func BroadcastShortageNotice(sessionID string, item models.LineItem) {
	broadcast(sessionID, Message{
		Event: EventShortageNotice,
		Data:  item,
	})
}

// BroadcastSaleDecision -> sale memutuskan SHIP_PARTIAL / WAIT_ALL
func BroadcastSaleDecision(sessionID string, item models.LineItem) {
	broadcast(sessionID, Message{
		Event: EventSaleDecision,
		Data:  item,
	})
}

// BroadcastSourcePlan -> source konfirmasi rencana pengadaan
func BroadcastSourcePlan(sessionID string, item models.LineItem) {
	broadcast(sessionID, Message{
		Event: EventSourcePlan,
		Data:  item,
	})
}

// BroadcastSnapshotSaved -> snapshot berhasil dibangun dari state sekarang
func BroadcastSnapshotSaved(sessionID string, snap *models.WorkflowSnapshot) {
	broadcast(sessionID, Message{
		Event: EventSnapshotSaved,
		Data:  snap,
	})
}

// BroadcastSnapshotRestored -> sesi dibuka dengan history lama
func BroadcastSnapshotRestored(sessionID string, source string) {
	broadcast(sessionID, Message{
		Event: EventSnapshotRestored,
		Data:  map[string]string{"source": source},
	})
}

// BroadcastStaffNotification -> pesan bebas untuk semua client sesi
func BroadcastStaffNotification(sessionID string, message string) {
	broadcast(sessionID, Message{
		Event: EventStaffNotification,
		Data:  message,
	})
}

// broadcast -> kirim pesan ke semua client dalam satu sesi; sessionID kosong
// berarti siaran global
func broadcast(sessionID string, msg Message) {
	workflowHub.mutex.Lock()
	defer workflowHub.mutex.Unlock()

	data, err := json.Marshal(msg)
	if err != nil {
		log.Printf("Error marshaling message: %v", err)
		return
	}

	for conn, info := range workflowHub.clients {
		if sessionID != "" && info.sessionID != sessionID {
			continue
		}
		if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
			log.Printf("Error sending message to %s client: %v", info.role, err)
			continue
		}
	}
}
