// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/starkmod/starkmod/cmd/starkmod"

func main() {
	cmd.Execute()
}
