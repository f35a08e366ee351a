// Package notify delivers formatted reports to a chat webhook and keeps a
// history of every attempt.
//
// WebhookSender posts a JSON body {"text", "channel", "blocks"} to an
// incoming-webhook URL. A non-2xx response becomes a *DeliveryError and a
// transport failure is wrapped in ErrDeliveryFailed; either way the
// sender makes exactly one attempt. Retrying is left to the caller.
//
// Notifier combines a Sender with a DeliveryRepository: each Deliver call
// sends once and records the outcome, successful or not, in the
// report_deliveries table.
package notify
