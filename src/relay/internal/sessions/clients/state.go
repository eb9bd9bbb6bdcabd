package clients

type sessionState interface {
	paused() bool
}

// buffering queues messages until a consumer attaches. lastConsumer is the
// consumer detached by Pause, kept only as a reference.
type buffering struct {
	queue        []string
	lastConsumer Consumer
}

type streaming struct {
	consumer Consumer
}

type destroyed struct{}

func (*buffering) paused() bool { return true }
func (*streaming) paused() bool { return false }
func (*destroyed) paused() bool { return true }
