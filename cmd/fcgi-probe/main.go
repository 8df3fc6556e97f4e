// Command fcgi-probe sends one FastCGI request to a running handler and
// prints the raw response.
package main

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/phuslu/log"
	"github.com/spf13/cobra"
	fcgiclient "github.com/tomasen/fcgi_client"

	"github.com/cjungmann/apache-file-handler/internal/env"
	"github.com/cjungmann/apache-file-handler/internal/logging"
)

type probeOptions struct {
	network        string
	address        string
	pathInfo       string
	pathTranslated string
	params         []string
}

func main() {
	var opts probeOptions

	cmd := &cobra.Command{
		Use:           "fcgi-probe --address ADDR [flags]",
		Short:         "Send a single FastCGI GET request and print the response",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return probe(cmd.OutOrStdout(), opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.network, "network", "unix", "Network of the handler: unix or tcp")
	fs.StringVar(&opts.address, "address", "", "Socket path or host:port of the handler")
	fs.StringVar(&opts.pathInfo, "path-info", "/", "PATH_INFO (and request URI) to send")
	fs.StringVar(&opts.pathTranslated, "path-translated", "", "PATH_TRANSLATED to send")
	fs.StringArrayVar(&opts.params, "param", nil, "Extra NAME=VALUE parameter, repeatable")
	cmd.MarkFlagRequired("address")

	logging.Setup("info")
	if err := cmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("probe failed")
	}
}

// requestParams returns the FastCGI parameters for opts.
func requestParams(opts probeOptions) map[string]string {
	p := map[string]string{
		env.GatewayInterface: "CGI/1.1",
		env.ServerProtocol:   "HTTP/1.1",
		env.ServerSoftware:   "fcgi-probe",
		env.RequestMethod:    "GET",
		env.RequestURI:       opts.pathInfo,
		env.PathInfo:         opts.pathInfo,
		env.ContentLength:    "0",
	}
	if opts.pathTranslated != "" {
		p[env.PathTranslated] = opts.pathTranslated
	}
	for k, v := range env.Parse(opts.params) {
		p[k] = v
	}
	return p
}

func probe(w io.Writer, opts probeOptions) error {
	c, err := fcgiclient.Dial(opts.network, opts.address)
	if err != nil {
		return fmt.Errorf("dial %s %s: %w", opts.network, opts.address, err)
	}
	defer c.Close()

	resp, err := c.Request(requestParams(opts), nil)
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}

	fmt.Fprintf(w, "Status: %d\n", resp.StatusCode)
	names := make([]string, 0, len(resp.Header))
	for k := range resp.Header {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "%s: %s\n", k, strings.Join(resp.Header[k], ", "))
	}
	fmt.Fprintln(w)

	_, err = io.Copy(w, resp.Body)
	return err
}
