// Package uart implements the interrupt-to-task data path of a serial link.
//
// Bytes flow in two directions:
//
//	link -> receive handler -> inbound Queue -> task (Driver.Receive)
//	task -> Driver.SendByte -> outbound Queue or link -> transmit handler -> link
//
// Handlers run in interrupt context: they are invoked serially by the link's
// dispatcher, never block and never log. Faults found there are counted in
// Counters and picked up by tasks later.
//
// The transmit-empty interrupt is enabled only by SendByte and disabled only
// by the transmit handler once the outbound queue has drained.
package uart
