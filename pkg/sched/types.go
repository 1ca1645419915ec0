// Package sched runs the application tasks: long running Tasks in a Group
// and periodic Controllers in a priority Loop.
package sched

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Task is a long running unit of work in task context.
type Task interface {
	Run(context.Context) error
}

// TaskFunc is the func form of Task.
type TaskFunc func(context.Context) error

// Run implements Task.
func (f TaskFunc) Run(ctx context.Context) error {
	return f(ctx)
}

// Message is anything posted to a Loop for its controllers.
type Message interface{}

// Controller is invoked once per Loop iteration. Returning is the
// cooperative yield back to the Loop.
type Controller interface {
	Control(ControlContext) error
}

// ControlFunc is the func form of Controller.
type ControlFunc func(ControlContext) error

// Control implements Controller.
func (f ControlFunc) Control(cc ControlContext) error {
	return f(cc)
}

// ControlContext provides the context of the current iteration.
type ControlContext interface {
	// Context retrieves context.Context.
	Context() context.Context
	// Time is the start time of the iteration.
	Time() time.Time
	// PriorityLevel gets the current priority level.
	PriorityLevel() int
	// Messages retrieves all messages collected when this iteration starts.
	Messages() MessageStore

	LoopControl
}

// LoopControl exposes access to the running Loop.
type LoopControl interface {
	// PostMessage enqueues the message for the next iteration.
	PostMessage(Message)
	// TriggerNext schedules the next iteration immediately.
	TriggerNext()
}

// Priority levels, lower runs first within an iteration.
const (
	PriorityLevels int = 8

	PrLvHigh   int = 0
	PrLvNormal int = 3
	PrLvLow    int = 6
	PrLvIdle   int = PriorityLevels - 1
)

// MessageStore provides access to the messages of an iteration.
type MessageStore interface {
	// ProcessMessages uses a processor to examine all messages.
	ProcessMessages(MessageProcessor)
}

// MessageProcessor is used by MessageStore to process messages.
type MessageProcessor interface {
	ProcessMessage(MessageProcessingContext)
}

// ProcessMessageFunc is the func form of MessageProcessor.
type ProcessMessageFunc func(MessageProcessingContext)

// ProcessMessage implements MessageProcessor.
func (f ProcessMessageFunc) ProcessMessage(mc MessageProcessingContext) {
	f(mc)
}

// MessageProcessingContext provides context for the current message.
type MessageProcessingContext interface {
	// CurrentMessage gets the message being processed.
	CurrentMessage() Message
	// MessageTaken removes the message, lower priority controllers won't
	// see it.
	MessageTaken()
}
