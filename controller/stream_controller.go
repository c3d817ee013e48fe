package controller

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"restobar/model"
	"restobar/production"
	"restobar/realtime"
	"restobar/staff"
	"restobar/utils"
)

const (
	queueRefresh = 60 * time.Second
	keepAlive    = 30 * time.Second
)

func openStream(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.WriteString("retry: 2000\n\n")
	c.Writer.Flush()
}

func send(c *gin.Context, event string, data interface{}) {
	c.SSEvent(event, data)
	c.Writer.Flush()
}

// streamSession ties a stream to the caller's session. The returned channel
// closes when the session is superseded or ended; release must be called
// when the stream ends.
func (ctl *Controller) streamSession(c *gin.Context) (<-chan struct{}, func()) {
	user := callerID(c)
	signedOut, unwatch := ctl.Auth.WatchSession(user, utils.CurrentSessionID(c))
	leave := func() {}
	if ctl.Presence != nil {
		p, err := ctl.Auth.Resolver().Profile(c.Request.Context(), user)
		if err != nil {
			p = model.Profile{ID: user, Role: callerRole(c)}
		}
		leave = ctl.Presence.Join(p)
	}
	return signedOut, func() {
		unwatch()
		leave()
	}
}

// ProductionStream pushes the production queue of the caller's area and the
// notices meant for the caller's role. The queue is resent after every
// change and at least once a minute so elapsed times stay current.
func (ctl *Controller) ProductionStream(c *gin.Context) {
	area, valid := screenArea(c)
	if !valid {
		return
	}
	role := callerRole(c)
	showQueue := role != model.RoleWaiter

	signedOut, release := ctl.streamSession(c)
	defer release()
	listener := ctl.Production.Listen(area, role)
	defer listener.Close()

	openStream(c)
	ctx := c.Request.Context()
	pushQueue := func() {
		if !showQueue {
			return
		}
		groups, err := ctl.Production.Pending(ctx, area)
		if err != nil {
			ctl.logger().Error(utils.RequestID(c), "production_stream", "queue unavailable", err)
			return
		}
		send(c, "queue", groups)
	}
	pushQueue()

	ticker := time.NewTicker(queueRefresh)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-signedOut:
			send(c, "signed_out", gin.H{"code": utils.ErrSessionSuperseded.Error()})
			return
		case <-ticker.C:
			pushQueue()
		case n, open := <-listener.C:
			if !open {
				return
			}
			if n.Kind != production.NoticeRefresh {
				send(c, "notice", n)
			}
			if n.Kind != production.NoticeItemReady {
				pushQueue()
			}
		}
	}
}

// CallStream delivers waiter calls addressed to the caller or broadcast to
// every waiter.
func (ctl *Controller) CallStream(c *gin.Context) {
	user := callerID(c)
	signedOut, release := ctl.streamSession(c)
	defer release()
	sub := ctl.Feed.Subscribe(callFilter(user))
	defer sub.Close()

	openStream(c)
	ctx := c.Request.Context()
	ticker := time.NewTicker(keepAlive)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-signedOut:
			send(c, "signed_out", gin.H{"code": utils.ErrSessionSuperseded.Error()})
			return
		case <-ticker.C:
			c.Writer.WriteString(": keepalive\n\n")
			c.Writer.Flush()
		case e, open := <-sub.C:
			if !open {
				return
			}
			var call model.WaiterCall
			if err := e.Decode(&call); err != nil {
				continue
			}
			send(c, "call", call)
		}
	}
}

func callFilter(waiterID uuid.UUID) realtime.Filter {
	return realtime.Filter{
		Table: model.WaiterCall{}.TableName(),
		Ops:   []realtime.Op{realtime.OpInsert},
		Match: func(e realtime.ChangeEvent) bool {
			var call model.WaiterCall
			if err := e.Decode(&call); err != nil {
				return false
			}
			return staff.CallIsFor(call, waiterID)
		},
	}
}
