package responseguard

import "regexp"

const (
	CategoryEvidenceDestruction = "evidence_destruction"
	CategoryDefenseEvasion      = "defense_evasion"
	CategoryDataExfil           = "data_exfil"
)

// Rule is one pattern that flags an unsafe instruction in a generated answer.
type Rule struct {
	ID       string
	Category string
	Pattern  string
	re       *regexp.Regexp
}

// cmdStart anchors a pattern at the start of a command, allowing a sudo prefix.
const cmdStart = `(?:^|[;&|` + "`" + `]\s*|\n|\$\s*|>\s*)\s*(?:\b(?:sudo|doas)\s+)?`

var defaultRules = compileRules([]Rule{
	{ID: "wevtutil_clear_log", Category: CategoryEvidenceDestruction, Pattern: `\bwevtutil(?:\.exe)?\s+(?:cl|clear-log)\b`},
	{ID: "powershell_clear_eventlog", Category: CategoryEvidenceDestruction, Pattern: `\b(?:Clear-EventLog|Remove-EventLog)\b|\[System\.Diagnostics\.Eventing\.Reader\.EventLogSession\]::GlobalSession\.ClearLog`},
	{ID: "truncate_system_logs", Category: CategoryEvidenceDestruction, Pattern: cmdStart + `(?:>\s*/var/log/\S+|\btruncate\b[^;\n]*/var/log/\S+|\brm\b\s+-[rR]?f?\s+/var/log/)`},
	{ID: "clear_shell_history", Category: CategoryEvidenceDestruction, Pattern: cmdStart + `(?:\bhistory\s+-c\b|\bunset\s+HISTFILE\b|\brm\b[^;\n]*\.(?:bash|zsh)_history\b)`},
	{ID: "journalctl_vacuum", Category: CategoryEvidenceDestruction, Pattern: cmdStart + `\bjournalctl\b[^;\n]*--vacuum-(?:time|size|files)`},
	{ID: "secure_delete", Category: CategoryEvidenceDestruction, Pattern: cmdStart + `\b(?:shred|srm|wipe)\b\s+\S+|\bsdelete(?:64)?(?:\.exe)?\b`},
	{ID: "timestomp", Category: CategoryEvidenceDestruction, Pattern: `\btimestomp\b|` + cmdStart + `\btouch\b[^;\n]*\s-(?:r|d|t)\b`},
	{ID: "fsutil_usn_delete", Category: CategoryEvidenceDestruction, Pattern: `\bfsutil\b[^;\n]*\busn\b[^;\n]*\bdeletejournal\b`},

	{ID: "defender_disable", Category: CategoryDefenseEvasion, Pattern: `\bSet-MpPreference\b[^;\n]*-Disable(?:RealtimeMonitoring|BehaviorMonitoring|IOAVProtection|ScriptScanning)\s+\$?true`},
	{ID: "auditd_disable", Category: CategoryDefenseEvasion, Pattern: cmdStart + `\b(?:auditctl\s+-(?:D|e\s*0)\b|(?:systemctl|service)\b[^;\n]*\b(?:stop|disable)\b[^;\n]*\bauditd\b)`},
	{ID: "stop_edr_service", Category: CategoryDefenseEvasion, Pattern: `\b(?:sc(?:\.exe)?\s+(?:stop|delete|config)|Stop-Service|net\s+stop)\b[^;\n]*\b(?:WinDefend|Sense|CSFalconService|SentinelAgent|CylanceSvc|cbdefense|MsMpSvc|Sysmon64?)\b`},
	{ID: "sysmon_uninstall", Category: CategoryDefenseEvasion, Pattern: `\bsysmon(?:64)?(?:\.exe)?\s+-u\b`},
	{ID: "auditpol_clear", Category: CategoryDefenseEvasion, Pattern: `\bauditpol(?:\.exe)?\s+/(?:clear|remove)\b|\bauditpol(?:\.exe)?\s+/set\b[^;\n]*/success:disable`},
	{ID: "firewall_disable", Category: CategoryDefenseEvasion, Pattern: `\bnetsh\s+advfirewall\s+set\s+\w+\s+state\s+off\b|` + cmdStart + `\b(?:ufw\s+disable|iptables\s+-F)\b`},

	{ID: "curl_upload_file", Category: CategoryDataExfil, Pattern: cmdStart + `\bcurl\b[^|;\n]*(?:--upload-file\b|-T\b)\s+\S+`},
	{ID: "curl_form_file", Category: CategoryDataExfil, Pattern: cmdStart + `\bcurl\b[^|;\n]*\s(?:-F\b|--form\b)\s+\S*=@\S+`},
	{ID: "curl_data_at_file", Category: CategoryDataExfil, Pattern: cmdStart + `\bcurl\b[^|;\n]*\s(?:-d\b|--data\b|--data-binary\b)\s+@\S+`},
	{ID: "wget_post_file", Category: CategoryDataExfil, Pattern: cmdStart + `\bwget\b[^|;\n]*--post-file=\S+`},
	{ID: "scp_to_remote", Category: CategoryDataExfil, Pattern: cmdStart + `\bscp\b[^|;\n]*\s+\S+\s+\S+@\S+:\S*`},
	{ID: "rsync_to_remote", Category: CategoryDataExfil, Pattern: cmdStart + `\brsync\b[^|;\n]*\s+\S+\s+\S+@\S+:\S*`},
	{ID: "netcat_exfil", Category: CategoryDataExfil, Pattern: cmdStart + `\b(?:nc|ncat|netcat)\b[^;\n]*\s+\S+\s+\d+\s*<\s*\S+`},
	{ID: "powershell_upload", Category: CategoryDataExfil, Pattern: `\bInvoke-(?:WebRequest|RestMethod)\b[^;\n]*-Method\s+(?:Post|Put)\b[^;\n]*-InFile\b`},
	{ID: "rclone_copy_remote", Category: CategoryDataExfil, Pattern: cmdStart + `\brclone\b\s+(?:copy|sync)\b[^;\n]*\s\S+:\S*`},
})

// DefaultRules returns the built-in rule set.
func DefaultRules() []Rule {
	out := make([]Rule, len(defaultRules))
	copy(out, defaultRules)
	return out
}

func compileRules(defs []Rule) []Rule {
	out := make([]Rule, 0, len(defs))
	for _, d := range defs {
		d.re = regexp.MustCompile(`(?im)` + d.Pattern)
		out = append(out, d)
	}
	return out
}
