package main

import "github.com/civipay/authnet-gateway/cmd"

func main() {
	cmd.Execute()
}
