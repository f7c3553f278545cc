//go:build linux && arm64 && !(rp2040 || rp2350)

package main

const device = "rpi"
