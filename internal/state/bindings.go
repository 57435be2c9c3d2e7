package state

import (
	"sync"
	"time"

	"github.com/yourusername/pairchat/internal/bus"
	"github.com/yourusername/pairchat/internal/logging"
	"github.com/yourusername/pairchat/internal/models"
)

// Binding connects host pushes to the store for as long as it is open
type Binding struct {
	unsubscribe []bus.Unsubscribe
	once        sync.Once
}

// Bind subscribes the store to the pushes that change UI state. Close
// removes every subscription.
func Bind(b *bus.Bus, s *Store) *Binding {
	log := logging.For("state")
	binding := &Binding{}

	binding.unsubscribe = append(binding.unsubscribe,
		b.Subscribe([]models.Command{models.CmdShowLoginView, models.CmdShowChatView}, func(env models.Envelope) {
			if env.Failed() {
				log.Warn().Str("command", env.Command.String()).Str("error", env.Error.Error()).Msg("view push failed")
				return
			}
			if env.Command == models.CmdShowLoginView {
				s.SignOut()
				return
			}
			s.Session.Update(func(sess Session) Session {
				sess.LoggedIn = true
				return sess
			})
			s.Global.Update(func(g Global) Global {
				g.View = models.ViewChat
				return g
			})
		}),

		b.On(models.CmdFocusChatInput, func(env models.Envelope) {
			s.Global.Update(func(g Global) Global {
				g.FocusRequests++
				g.LastFocusAt = time.Now()
				return g
			})
		}),

		b.On(models.CmdFigmaOAuthConnect, func(env models.Envelope) {
			if env.Failed() {
				log.Warn().Str("error", env.Error.Error()).Msg("figma connection failed")
				s.Attachments.Update(func(a Attachments) Attachments {
					a.Figma = models.FigmaConnection{}
					return a
				})
				return
			}
			conn, err := models.DecodePayload[models.FigmaConnection](env)
			if err != nil {
				log.Warn().Err(err).Msg("bad figma_oauth_connect payload")
				return
			}
			if env.Payload == nil {
				conn.Connected = true
			}
			s.Attachments.Update(func(a Attachments) Attachments {
				a.Figma = conn
				return a
			})
		}),
	)

	return binding
}

// Close unsubscribes from the bus. Safe to call more than once.
func (b *Binding) Close() {
	b.once.Do(func() {
		for _, unsubscribe := range b.unsubscribe {
			unsubscribe()
		}
	})
}
