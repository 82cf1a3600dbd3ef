// Package notify pushes race milestones (start sequence, gun, finish) to a
// coach or committee jid over xmpp.
package notify

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/mattn/go-xmpp"
	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/tactics-server/phase"
)

type Config struct {
	Host     string
	Jid      string
	Password string
	To       string
}

// Notifier implements the store's Publisher for the phase slice and sends
// one message per phase transition. Other slices are ignored.
type Notifier struct {
	Config Config

	mu   sync.Mutex
	last phase.Phase
}

func New(config Config) *Notifier {
	return &Notifier{Config: config, last: phase.PreRace}
}

func (n *Notifier) Publish(slice string, payload interface{}) {
	if slice != "phase" {
		return
	}
	ctx, ok := payload.(phase.Context)
	if !ok {
		return
	}

	n.mu.Lock()
	changed := ctx.Phase != n.last
	n.last = ctx.Phase
	n.mu.Unlock()

	if !changed {
		return
	}

	msg := fmt.Sprintf("race phase: %s", ctx.Phase)
	if ctx.CurrentLegID != "" {
		msg += fmt.Sprintf(" (%s)", ctx.CurrentLegID)
	}
	// the handshake takes seconds; never make a fix wait on it
	go func() {
		if err := n.Send(msg); err != nil {
			log.WithError(err).Debug("Error sending phase notification")
		}
	}()
}

func serverName(jid string) string {
	return strings.Split(jid, "@")[1]
}

func (n *Notifier) Send(message string) error {
	if len(n.Config.Jid) == 0 || len(n.Config.Password) == 0 || len(n.Config.To) == 0 {
		return errors.New("missing xmpp config")
	}

	host := n.Config.Host
	if len(host) == 0 {
		host = serverName(n.Config.Jid)
	}

	xmpp.DefaultConfig = tls.Config{
		InsecureSkipVerify: true,
	}

	options := xmpp.Options{
		Host:     host,
		User:     n.Config.Jid,
		Password: n.Config.Password,
		NoTLS:    true,
		StartTLS: true,
		Debug:    false,
		Session:  false,
		Status:   "xa",
	}

	talk, err := options.NewClient()
	if err != nil {
		return err
	}
	defer talk.Close()

	_, err = talk.Send(xmpp.Chat{Remote: n.Config.To, Type: "chat", Text: message})
	return err
}
