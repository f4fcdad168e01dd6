package main

import (
	"mypage-client/cmd/mypage-cli/cmd"
)

func main() {
	cmd.Execute()
}
