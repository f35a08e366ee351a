// Package channel defines the fixed set of instrument channels logged by
// the dilution refrigerator.
//
// A channel is one column of the daily log: a temperature stage, a pressure
// gauge, a thermometer resistance, a flow percentage, an on/off status flag
// or a valve. The registry is built at compile time and never changes at
// runtime; an ID is the channel's index in Registry and is used to index
// per-observation reading slices.
//
// # Categories
//
//	temperature  K     full range (MC), still, Platine 4K
//	pressure     mbar  P1..P3, K3..K6, K8
//	resistance   Ohm   R MMR1 1..3
//	flow         %     Pumping turbo speed, P/T
//	status       bool  Turbo AUX, PT
//	valve        bool  VE1..VE39
package channel
