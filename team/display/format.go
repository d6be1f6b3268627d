// team/display/format.go
package display

import "fmt"

// Chat and nametag format strings, matching what the in-game renderer expects.
// §-codes are Minecraft formatting codes; the team name is wrapped in gray
// brackets ahead of the player name.

// FormatChat returns the rebroadcast line for a chat message. teamName may be
// empty for teamless senders.
func FormatChat(teamName, username, message string) string {
	if teamName != "" {
		return fmt.Sprintf("§7[§r%s§r§7]§r §7%s §r: %s", teamName, username, message)
	}
	return fmt.Sprintf("§7%s §r: %s", username, message)
}

// FormatNameTag returns the player's displayed nametag for their current team
// state.
func FormatNameTag(teamName, username string) string {
	if teamName != "" {
		return fmt.Sprintf("§7[§r%s§r§7]§r %s", teamName, username)
	}
	return username
}
