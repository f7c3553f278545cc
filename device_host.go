//go:build !rp2040 && !rp2350 && !(linux && arm64)

package main

const device = "host"
