// Package provision connects a station to its network and takes it back to
// provisioning on request.
//
// Network management is delegated to host commands configured in the
// provisioning section of station.yaml, for example with NetworkManager:
//
//	provisioning:
//	  status_command: "nmcli -t networking connectivity check | grep -q full"
//	  connect_command: "wifi-connect --portal-ssid {ssid}"
//	  reset_command: "nmcli connection delete station-uplink"
//
// The package also drives the status LED and re-executes the process after
// a provisioning reset.
package provision
