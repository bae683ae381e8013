package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"
	contractx "github.com/ventaluz/ventaluz/agent/contract"
)

// webhookPayload mirrors the WhatsApp Cloud API change notification
// envelope, reduced to the fields the dispatcher needs.
type webhookPayload struct {
	Object string `json:"object"`
	Entry  []struct {
		ID      string `json:"id"`
		Changes []struct {
			Field string       `json:"field"`
			Value webhookValue `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type webhookValue struct {
	MessagingProduct string `json:"messaging_product"`
	Metadata         struct {
		DisplayPhoneNumber string `json:"display_phone_number"`
		PhoneNumberID      string `json:"phone_number_id"`
	} `json:"metadata"`
	Contacts []struct {
		WaID    string `json:"wa_id"`
		Profile struct {
			Name string `json:"name"`
		} `json:"profile"`
	} `json:"contacts"`
	Messages []struct {
		From      string `json:"from"`
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
		Type      string `json:"type"`
		Text      struct {
			Body string `json:"body"`
		} `json:"text"`
	} `json:"messages"`
}

// verifyWebhook answers the channel's subscription handshake: echo the
// challenge when the verify token matches, reject otherwise.
func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	mode := r.URL.Query().Get("hub.mode")
	token := r.URL.Query().Get("hub.verify_token")
	challenge := r.URL.Query().Get("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.verifyToken {
		log.Info().Msg("webhook subscription verified")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(challenge))
		return
	}
	log.Warn().Str("mode", mode).Msg("webhook verification rejected")
	http.Error(w, "verification failed", http.StatusForbidden)
}

// handleWebhook accepts a change notification, fans each text message
// into the dispatcher and always acknowledges with 200 so the channel
// does not retry turns we already own.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	var payload webhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	for _, msg := range flattenMessages(payload) {
		if err := s.dispatcher.HandleInbound(r.Context(), msg); err != nil {
			log.Error().Err(err).
				Str("routing_key", msg.RoutingKey).
				Str("customer", msg.From).
				Msg("inbound message handling failed")
		}
	}

	respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

func flattenMessages(payload webhookPayload) []contractx.InboundMessage {
	var out []contractx.InboundMessage
	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			value := change.Value
			names := make(map[string]string, len(value.Contacts))
			for _, contact := range value.Contacts {
				names[contact.WaID] = contact.Profile.Name
			}
			for _, msg := range value.Messages {
				out = append(out, contractx.InboundMessage{
					RoutingKey: value.Metadata.PhoneNumberID,
					From:       msg.From,
					SenderName: names[msg.From],
					Text:       msg.Text.Body,
					Type:       msg.Type,
					Timestamp:  parseUnixSeconds(msg.Timestamp),
				})
			}
		}
	}
	return out
}

func parseUnixSeconds(raw string) time.Time {
	secs, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || secs <= 0 {
		return time.Time{}
	}
	return time.Unix(secs, 0).UTC()
}
