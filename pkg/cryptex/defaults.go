package cryptex

import (
	"context"

	qerrors "github.com/routersec/cryptex-core/internal/errors"
	"github.com/routersec/cryptex-core/pkg/metrics"
)

// defaultEntries is the seed catalog of router security-testing modules.
var defaultEntries = []Entry{
	{
		FunctionName:  "exploit_dlink_rce_hnap",
		BrandingName:  "routersec_dlink_hnap_pwn",
		PseudoCode:    "Execute remote code on D-Link routers via HNAP vulnerability",
		Category:      CategoryExploit,
		NativeImpl:    "core/exploit/dlink/hnap_rce",
		ReferenceImpl: "routersploit.modules.exploits.routers.dlink.hnap_login",
	},
	{
		FunctionName:  "exploit_linksys_wrt54gl_rce",
		BrandingName:  "routersec_linksys_wrt54gl_exec",
		PseudoCode:    "Remote command execution on Linksys WRT54GL routers",
		Category:      CategoryExploit,
		ReferenceImpl: "routersploit.modules.exploits.routers.linksys.wrt54gl_exec",
	},
	{
		FunctionName:  "exploit_netgear_setup_rce",
		BrandingName:  "routersec_netgear_unauth_exec",
		PseudoCode:    "Unauthenticated remote code execution on Netgear routers",
		Category:      CategoryExploit,
		ReferenceImpl: "routersploit.modules.exploits.routers.netgear.multi_rce",
	},
	{
		FunctionName:  "scanner_router_autopwn",
		BrandingName:  "routersec_autopwn_scanner",
		PseudoCode:    "Automated vulnerability scanner for routers across all protocols",
		Category:      CategoryScanner,
		NativeImpl:    "core/scanner/autopwn",
		ReferenceImpl: "routersploit.modules.scanners.autopwn",
	},
	{
		FunctionName:  "scanner_camera_vuln",
		BrandingName:  "routersec_camera_scanner",
		PseudoCode:    "Vulnerability scanner targeting IP cameras",
		Category:      CategoryScanner,
		ReferenceImpl: "routersploit.modules.scanners.cameras",
	},
	{
		FunctionName:  "creds_ssh_default",
		BrandingName:  "routersec_ssh_bruteforce",
		PseudoCode:    "Test default and common SSH credentials",
		Category:      CategoryCredential,
		NativeImpl:    "core/creds/ssh_default",
		ReferenceImpl: "routersploit.modules.creds.generic.ssh_default",
	},
	{
		FunctionName:  "creds_telnet_default",
		BrandingName:  "routersec_telnet_bruteforce",
		PseudoCode:    "Test default and common Telnet credentials",
		Category:      CategoryCredential,
		ReferenceImpl: "routersploit.modules.creds.generic.telnet_default",
	},
	{
		FunctionName:  "payload_reverse_tcp_mipsle",
		BrandingName:  "routersec_mipsle_revshell",
		PseudoCode:    "MIPS little-endian reverse TCP shell payload",
		Category:      CategoryOther,
		NativeImpl:    "core/payload/mipsle/reverse_tcp",
		ReferenceImpl: "routersploit.modules.payloads.mipsle.reverse_tcp",
	},
	{
		FunctionName:  "encoder_php_base64",
		BrandingName:  "routersec_php_b64_encoder",
		PseudoCode:    "Base64 encoder for PHP payloads",
		Category:      CategoryOther,
		NativeImpl:    "core/encoder/php/base64",
		ReferenceImpl: "routersploit.modules.encoders.php.base64",
	},
	{
		FunctionName: "util_qkd_encrypt",
		BrandingName: "routersec_quantum_encrypt",
		PseudoCode:   "Quantum key distribution encryption utility",
		Category:     CategoryUtility,
		NativeImpl:   "crypto/qkd/encrypt",
	},
	{
		FunctionName: "util_multi_hash",
		BrandingName: "routersec_omni_hasher",
		PseudoCode:   "Multi-algorithm hashing utility (SHA-2/3, BLAKE, etc.)",
		Category:     CategoryUtility,
		NativeImpl:   "crypto/hashing/multi_hash",
	},
}

// PopulateDefaults seeds the registry with the built-in catalog. Entries
// whose function name is already registered are skipped, so the call is
// idempotent and safe over a registry that already holds user entries.
func (r *Registry) PopulateDefaults(ctx context.Context) error {
	added := 0
	for i := range defaultEntries {
		e := defaultEntries[i]
		e.ID = ""
		err := r.Add(ctx, &e)
		switch {
		case err == nil:
			added++
		case qerrors.Is(err, qerrors.ErrDuplicate):
			continue
		default:
			return err
		}
	}
	r.logger.Info("default entries populated", metrics.Fields{"added": added})
	return nil
}
