package main

import (
	"fmt"

	"github.com/DingWH03/uchat-sub000/cmd"
)

func main() {
	if err := cmd.Run(); err != nil {
		fmt.Println(err.Error())
		return
	}
}
