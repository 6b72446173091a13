package banner

import (
	"fmt"

	"chatsync/pkg/config"
)

const banner = `
 ██████╗██╗  ██╗ █████╗ ████████╗███████╗██╗   ██╗███╗   ██╗ ██████╗
██╔════╝██║  ██║██╔══██╗╚══██╔══╝██╔════╝╚██╗ ██╔╝████╗  ██║██╔════╝
██║     ███████║███████║   ██║   ███████╗ ╚████╔╝ ██╔██╗ ██║██║
██║     ██╔══██║██╔══██║   ██║   ╚════██║  ╚██╔╝  ██║╚██╗██║██║
╚██████╗██║  ██║██║  ██║   ██║   ███████║   ██║   ██║ ╚████║╚██████╗
 ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝   ╚═╝   ╚══════╝   ╚═╝   ╚═╝  ╚═══╝ ╚═════╝
`

// Print prints the startup banner with the effective runtime info.
func Print(eff config.EffectiveConfigResult, version string) {
	fmt.Print(banner)
	fmt.Println("== Config =====================================================")
	fmt.Printf("Listen:    %s\n", eff.Addr)
	fmt.Printf("DB Path:   %s\n", eff.DBPath)
	if version != "" {
		fmt.Printf("Version:   %s\n", version)
	}
	fmt.Printf("Source:    %s\n", eff.Source)
	if eff.Config != nil {
		fmt.Printf("Page size: %d, cache TTL: %s, max entries: %d\n",
			eff.Config.Cache.PageSize, eff.Config.Cache.TTL.Std(), eff.Config.Cache.MaxEntries)
	}
	fmt.Println("\n== Endpoints ==================================================")
	fmt.Println("POST /v1/chats                     - Create a conversation")
	fmt.Println("POST /v1/chats/{id}/messages       - Append a message")
	fmt.Println("GET  /v1/chats/{id}/messages       - Paginated history (?before=<id>&limit=<n>)")
	fmt.Println("GET  /v1/chats/{id}/stream         - Live snapshot websocket")
	fmt.Println("POST /v1/chats/{id}/read           - Mark messages read")
	fmt.Println("GET  /v1/cache/stats               - Cache statistics")
}
