package web

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/alanbriolat/video-harvester/internal/pubsub"
	"github.com/alanbriolat/video-harvester/internal/session"
)

const eventBufSize = 16

// eventPayload maps a session event to an SSE event name and JSON body.
func eventPayload(e session.Event) (string, any) {
	switch e := e.(type) {
	case session.LinksDiscovered:
		body := gin.H{"base_url": e.BaseURL, "links": e.Links}
		if e.Err != nil {
			body["error"] = e.Err.Error()
		}
		return "links", body
	case session.SelectionChanged:
		return "selection", gin.H{"urls": e.URLs}
	case session.JobsCleared:
		return "jobs_cleared", gin.H{}
	case session.JobAdded:
		return "job_added", e.State
	case session.JobUpdated:
		return "job_updated", e.NewState
	case session.BatchProgress:
		return "batch_progress", gin.H{"done": e.Done, "total": e.Total}
	case session.BatchFinished:
		return "batch_finished", e.Result
	default:
		return "", nil
	}
}

// getEvents streams session events until the client goes away. "?job=ID" limits the stream to one job.
func (s *Server) getEvents(c *gin.Context) {
	ch := pubsub.NewChannel[session.Event](eventBufSize)
	// A client that stops reading loses progress updates rather than holding up the session.
	sender := pubsub.NewLossySender[session.Event](ch, session.IsProgressOnly)
	if id := session.JobID(c.Query("job")); id != "" {
		sender = pubsub.NewFilteredSender[session.Event](sender, func(e session.Event) bool {
			return e.JobID() == id
		})
	}
	if err := s.session.AddSubscriber(sender); err != nil {
		s.abort(c, err)
		return
	}
	defer s.session.RemoveSubscriber(sender)
	defer sender.Close()

	c.Header("Cache-Control", "no-cache")
	c.SSEvent("ready", gin.H{"busy": s.session.Busy()})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case e, ok := <-ch.Receive():
			if !ok {
				return false
			}
			if name, body := eventPayload(e); name != "" {
				c.SSEvent(name, body)
			}
			return true
		case <-ctx.Done():
			return false
		}
	})
}
