// Command sensorsim simulates pressure and gas sensors that follow
// piecewise-linear curves and publish their readings to a telemetry
// transport.
package main

func main() {
	Execute()
}
