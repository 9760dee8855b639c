/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/naukovi-znahidky/client/cmd"

func main() {
	cmd.Execute()
}
