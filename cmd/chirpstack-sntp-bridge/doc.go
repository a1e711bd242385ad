/*
ChirpStack SNTP Bridge polls SNTP servers and publishes the measured clock
offset and round-trip delay as Protobuf or JSON over MQTT.

Usage:
  chirpstack-sntp-bridge [flags]
  chirpstack-sntp-bridge [command]

Available Commands:
  configfile  Print the ChirpStack SNTP Bridge configuration file
  help        Help about any command
  query       Query a single SNTP server and print the sample
  version     Print the ChirpStack SNTP Bridge version

Flags:
  -c, --config strings   path to configuration file (optional)
  -h, --help             help for chirpstack-sntp-bridge
      --log-level int    debug=5, info=4, error=2, fatal=1, panic=0 (default 4)

Use "chirpstack-sntp-bridge [command] --help" for more information about a command.

*/
package main
