package main

import "github.com/xenoncommunity/xenon/pkg/cmd/xenon"

func main() {
	xenon.Execute()
}
