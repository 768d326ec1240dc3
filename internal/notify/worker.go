// Package notify sends web push notifications when a battery becomes
// available again. Delivery is fire-and-forget from the return workflow's
// point of view; a failed push never affects inventory state.
package notify

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"gorm.io/gorm"

	"battery-rental-backend/internal/model"
)

// Sender defines the interface for sending a web push notification.
type Sender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is the real Sender backed by the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// WorkerPool fans availability notifications out to subscribed clients.
type WorkerPool struct {
	size    int
	jobs    chan string
	db      *gorm.DB
	webpush *webpush.Options
	sender  Sender
}

// NewWorkerPool creates a worker pool of the given size.
func NewWorkerPool(size int, db *gorm.DB, webpushOptions *webpush.Options) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan string, size),
		db:      db,
		webpush: webpushOptions,
		sender:  &WebPushSender{},
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log.Printf("notify worker %d started", id)
	for {
		select {
		case number := <-wp.jobs:
			wp.sendForAsset(ctx, number)
		case <-ctx.Done():
			log.Printf("notify worker %d shutting down", id)
			return
		}
	}
}

// Dispatch queues a notification round for one battery number.
func (wp *WorkerPool) Dispatch(assetNumber string) {
	wp.jobs <- assetNumber
}

// sendForAsset fetches the subscriptions watching the battery and sends
// each one an availability notification.
func (wp *WorkerPool) sendForAsset(ctx context.Context, number string) {
	var subscriptions []model.PushSubscription
	err := wp.db.WithContext(ctx).
		Joins("JOIN subscribed_assets sa ON sa.endpoint = push_subscriptions.endpoint").
		Where("sa.asset_number = ?", number).
		Find(&subscriptions).Error
	if err != nil {
		log.Printf("notify: fetching subscriptions for battery %s: %v", number, err)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	log.Printf("notify: sending %d notifications for battery %s", len(subscriptions), number)
	payload := []byte(fmt.Sprintf("Battery %s is available again", number))
	for _, sub := range subscriptions {
		wp.send(ctx, sub, payload)
	}
}

func (wp *WorkerPool) send(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		log.Printf("notify: sending to %s: %v", sub.Endpoint, err)
		return
	}
	defer resp.Body.Close()

	// Prune endpoints the push service reports gone.
	if resp.StatusCode == http.StatusGone {
		log.Printf("notify: subscription %s expired, deleting", sub.Endpoint)
		err := wp.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("endpoint = ?", sub.Endpoint).Delete(&model.SubscribedAsset{}).Error; err != nil {
				return err
			}
			return tx.Delete(&model.PushSubscription{Endpoint: sub.Endpoint}).Error
		})
		if err != nil {
			log.Printf("notify: failed to delete expired subscription %s: %v", sub.Endpoint, err)
		}
	}
}
