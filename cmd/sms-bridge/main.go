// Command sms-bridge runs the SMS alarm-notification bridge.
package main

import "github.com/tyrion/nucleus-sms-bridge/cmd/sms-bridge/cmd"

func main() {
	cmd.Execute()
}
