package cron

import (
	"context"
	"database/sql"
	"fmt"

	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
	"go.mau.fi/whatsmeow/types"
	waLog "go.mau.fi/whatsmeow/util/log"
	"google.golang.org/protobuf/proto"
	_ "modernc.org/sqlite"

	"github.com/nextlevelbuilder/goclaw/internal/bus"
)

// RegisterWhatsAppAnnounce wires a "whatsapp" MessageHandler backed by an
// already-paired whatsmeow device store at dbPath. Pairing (QR-code linking)
// is an interactive flow out of scope here; this only sends through a
// session some other tool already established. A missing or unpaired store
// is reported as an error rather than silently skipped, since an operator
// who configured a path expects it to work.
func RegisterWhatsAppAnnounce(msgBus *bus.MessageBus, dbPath string) error {
	if dbPath == "" {
		return nil
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return fmt.Errorf("whatsapp: open store: %w", err)
	}

	container := sqlstore.NewWithDB(db, "sqlite3", waLog.Noop)
	if err := container.Upgrade(context.Background()); err != nil {
		return fmt.Errorf("whatsapp: upgrade store: %w", err)
	}

	device, err := container.GetFirstDevice(context.Background())
	if err != nil {
		return fmt.Errorf("whatsapp: load device: %w", err)
	}
	if device == nil {
		return fmt.Errorf("whatsapp: no device paired at %s", dbPath)
	}

	client := whatsmeow.NewClient(device, waLog.Noop)

	msgBus.RegisterHandler("whatsapp", func(msg bus.OutboundMessage) error {
		jid, err := types.ParseJID(msg.ChatID)
		if err != nil {
			return fmt.Errorf("whatsapp: invalid chat id %q: %w", msg.ChatID, err)
		}
		_, err = client.SendMessage(context.Background(), jid, &waE2E.Message{
			Conversation: proto.String(msg.Content),
		})
		return err
	})

	return nil
}
