package main

import "github.com/ValentinKolb/typedkv/cmd"

func main() {
	cmd.Execute()
}
