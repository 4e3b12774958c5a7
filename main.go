/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package main

import "github.com/openarcade/playerbase/cmd"

func main() {
	cmd.Execute()
}
